// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/reqwatch/reqwatch/internal/licenses"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

var licensesCmd = &cobra.Command{
	Use:   "licenses [manifest...]",
	Short: "Report license annotations",
	Long: `Licenses aggregates the inline license annotations of every declared
and documented package: the SPDX identifier where the label maps to one,
plus per-license totals, unknown labels and unlabelled packages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, path := range resolveManifests(args) {
			m, err := manifest.ParseFile(path)
			if err != nil {
				return err
			}
			report := licenses.Build(m, time.Now())
			if outputFormat == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
				continue
			}
			if err := writeLicenseTable(out, report); err != nil {
				return err
			}
		}
		return nil
	},
}

// writeLicenseTable renders one report as an aligned table followed by
// a totals line. "-" marks unlabelled packages, "?" labels the registry
// mapping does not recognise.
func writeLicenseTable(w io.Writer, r *licenses.Report) error {
	if r.Manifest != "" {
		fmt.Fprintf(w, "%s:\n", r.Manifest)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tSECTION\tLICENSE\tSPDX")
	for _, e := range r.Entries {
		label, spdx := e.Label, e.SPDX
		switch {
		case e.Label == "":
			label, spdx = "-", "-"
		case !e.Known:
			spdx = "?"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Section, label, spdx)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	known := len(r.Entries) - r.Unknown - r.Unlabelled
	_, err := fmt.Fprintf(w, "%d package(s): %d known, %d unknown, %d unlabelled\n",
		len(r.Entries), known, r.Unknown, r.Unlabelled)
	return err
}

func init() {
	rootCmd.AddCommand(licensesCmd)
}
