// SPDX-License-Identifier: MIT

// Command reqwatch is the one-shot companion to reqwatchd: lint,
// format, license-report and pin-verify requirements manifests from
// the shell or CI, or run the full audit pipeline once.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/reqwatch/reqwatch/internal/version"
)

var (
	manifestFlags []string
	outputFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "reqwatch",
	Short: "Audit pip requirements manifests",
	Long: `reqwatch checks pip requirements manifests for hygiene problems:
constraint syntax, conflicting duplicates, undocumented indirect
dependencies, declaration order, license annotations and pin coverage.

Commands exit non-zero when they find error-level problems, so they
slot into CI pipelines as-is.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&manifestFlags, "manifest", "m", nil, "manifest file to process (repeatable)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format: text or json")
}

// resolveManifests merges --manifest flags with positional arguments,
// defaulting to requirements.txt when neither names a file.
func resolveManifests(args []string) []string {
	paths := make([]string, 0, len(manifestFlags)+len(args))
	paths = append(paths, manifestFlags...)
	paths = append(paths, args...)
	if len(paths) == 0 {
		paths = append(paths, "requirements.txt")
	}
	return paths
}

func checkFormat() error {
	switch outputFormat {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (supported: text, json)", outputFormat)
}

func main() {
	// A .env in the working directory supplies REQWATCH_ variables for
	// local use; variables already exported win.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
