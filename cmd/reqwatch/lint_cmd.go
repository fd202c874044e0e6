// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/lint"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

var (
	lintPins     string
	lintCatalog  string
	lintIndexURL string
)

var lintCmd = &cobra.Command{
	Use:   "lint [manifest...]",
	Short: "Check manifests for hygiene violations",
	Long: `Lint parses each manifest and runs the full rule set: specifier
syntax, conflicting duplicates, license annotations and, when a pins
file is given, pin coverage.

Rules that need package metadata (existence, dependency coverage,
registry license agreement) run only when --catalog or --index-url is
set; without either they are skipped.

The exit status is 1 when any error-severity finding remains.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		provider, err := jobs.BuildProvider(config.IndexConfig{URL: lintIndexURL, Catalog: lintCatalog})
		if err != nil {
			return fmt.Errorf("index provider: %w", err)
		}
		var pins *manifest.Manifest
		if lintPins != "" {
			if pins, err = jobs.LoadPins(lintPins); err != nil {
				return err
			}
		}

		engine := lint.New(nil)
		out := cmd.OutOrStdout()
		errorCount := 0
		for _, path := range resolveManifests(args) {
			m, err := manifest.ParseFile(path)
			if err != nil {
				return err
			}
			res, err := engine.Run(cmd.Context(), &lint.Target{Manifest: m, Pins: pins, Provider: provider})
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				err = lint.WriteJSON(out, res)
			} else {
				err = lint.WriteText(out, res)
			}
			if err != nil {
				return err
			}
			errorCount += res.Errors
		}
		if errorCount > 0 {
			return fmt.Errorf("%d error(s)", errorCount)
		}
		return nil
	},
}

func init() {
	lintCmd.Flags().StringVar(&lintPins, "pins", "", "pins file to check coverage against")
	lintCmd.Flags().StringVar(&lintCatalog, "catalog", "", "offline package catalog (YAML) for metadata-backed rules")
	lintCmd.Flags().StringVar(&lintIndexURL, "index-url", "", "package index base URL for metadata-backed rules")
	rootCmd.AddCommand(lintCmd)
}
