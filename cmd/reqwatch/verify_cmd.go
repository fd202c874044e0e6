// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqwatch/reqwatch/internal/jobs"
)

var verifyPins string

var verifyCmd = &cobra.Command{
	Use:   "verify [manifest]",
	Short: "Check pin coverage against the manifest inventory",
	Long: `Verify compares the manifest's inventory, declared plus documented
indirect packages, against a pins file: every inventory package needs a
pin, every pin must map back to the inventory, and pinned versions must
satisfy the manifest's constraints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		manifests := resolveManifests(args)
		if len(manifests) != 1 {
			return fmt.Errorf("verify takes exactly one manifest, got %d", len(manifests))
		}
		if verifyPins == "" {
			return fmt.Errorf("--pins is required")
		}

		res, err := jobs.Verify(manifests[0], verifyPins)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			for _, name := range res.Missing {
				fmt.Fprintf(out, "missing pin: %s\n", name)
			}
			for _, name := range res.Orphans {
				fmt.Fprintf(out, "orphan pin: %s\n", name)
			}
			for _, v := range res.Violations {
				if v.Constraint != "" {
					fmt.Fprintf(out, "pin violation: %s pinned %q against constraint %q\n", v.Package, v.Pinned, v.Constraint)
				} else {
					fmt.Fprintf(out, "pin violation: %s pinned %q\n", v.Package, v.Pinned)
				}
			}
			if res.OK {
				fmt.Fprintln(out, "OK")
			}
		}

		if !res.OK {
			return fmt.Errorf("%d problem(s)", len(res.Missing)+len(res.Orphans)+len(res.Violations))
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyPins, "pins", "", "pins file to verify (required)")
	rootCmd.AddCommand(verifyCmd)
}
