// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

var (
	fmtWrite bool
	fmtCheck bool
)

var fmtCmd = &cobra.Command{
	Use:   "fmt [manifest...]",
	Short: "Rewrite manifests in canonical form",
	Long: `Fmt normalises declaration lines: canonical specifier spelling and
single spaces around license comments. Prose comments, section headers,
blank lines and declaration order never change, and malformed lines are
kept as written.

By default the formatted manifest is written to stdout. With --write
files are rewritten in place, atomically; with --check nothing is
written and the exit status is 1 if any file is not canonical.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fmtWrite && fmtCheck {
			return fmt.Errorf("--write and --check are mutually exclusive")
		}
		out := cmd.OutOrStdout()
		dirty := 0
		for _, path := range resolveManifests(args) {
			m, err := manifest.ParseFile(path)
			if err != nil {
				return err
			}
			formatted := manifest.Canonical(m)
			switch {
			case fmtCheck:
				if !bytes.Equal(manifest.Render(m), formatted) {
					fmt.Fprintln(out, path)
					dirty++
				}
			case fmtWrite:
				if bytes.Equal(manifest.Render(m), formatted) {
					continue
				}
				if err := renameio.WriteFile(path, formatted, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
			default:
				if _, err := out.Write(formatted); err != nil {
					return err
				}
			}
		}
		if dirty > 0 {
			return fmt.Errorf("%d file(s) not in canonical form", dirty)
		}
		return nil
	},
}

func init() {
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "rewrite files in place")
	fmtCmd.Flags().BoolVar(&fmtCheck, "check", false, "list non-canonical files and exit 1 without writing")
	rootCmd.AddCommand(fmtCmd)
}
