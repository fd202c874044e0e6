// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/store"
)

var auditConfigPath string

var auditCmd = &cobra.Command{
	Use:   "audit [manifest...]",
	Short: "Run the full audit pipeline once",
	Long: `Audit runs the same pipeline as the daemon, once: lint every
configured manifest, build license reports, apply the license policy,
write report artifacts under the data directory and record the run in
the store.

Configuration comes from the environment (REQWATCH_ variables, .env
supported) plus an optional YAML file. Manifests named on the command
line override the configured list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(); err != nil {
			return err
		}
		path := auditConfigPath
		if path == "" {
			path = os.Getenv(config.EnvConfigFile)
		}
		cfg, err := config.NewLoader(path).LoadCLI()
		if err != nil {
			return err
		}
		if paths := append(append([]string{}, manifestFlags...), args...); len(paths) > 0 {
			cfg.Manifests = paths
		}

		st, err := store.OpenStore(cfg.Store.Backend, cfg.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		runner, err := jobs.FromConfig(cfg, st)
		if err != nil {
			return err
		}

		run, err := runner.Audit(cmd.Context(), store.TriggerCLI)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(run); err != nil {
				return err
			}
		} else {
			writeRunSummary(out, run)
		}

		if !run.Success {
			return fmt.Errorf("audit failed: %s", run.Err)
		}
		if run.Errors > 0 || run.PolicyViolations > 0 {
			return fmt.Errorf("%d error(s), %d policy violation(s)", run.Errors, run.PolicyViolations)
		}
		return nil
	},
}

func writeRunSummary(w io.Writer, run *jobs.RunResult) {
	for _, m := range run.Manifests {
		status := "ok"
		switch {
		case m.Err != "":
			status = "failed: " + m.Err
		case m.Lint != nil && m.Lint.Errors > 0, len(m.Policy) > 0:
			errs := 0
			if m.Lint != nil {
				errs = m.Lint.Errors
			}
			status = fmt.Sprintf("%d error(s), %d policy violation(s)", errs, len(m.Policy))
		}
		fmt.Fprintf(w, "%s: %s\n", m.Manifest, status)
	}
	fmt.Fprintf(w, "run %s: %d package(s), %d error(s), %d warning(s), %d policy violation(s) in %dms\n",
		run.ID, run.Packages, run.Errors, run.Warnings, run.PolicyViolations, run.DurationMS)
}

func init() {
	auditCmd.Flags().StringVar(&auditConfigPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(auditCmd)
}
