// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"path/filepath"

	"github.com/reqwatch/reqwatch/internal/lint"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

// LintBytes lints an in-memory manifest against the runner's rule set,
// pins file and index provider. Nothing is written or recorded; this
// serves ad-hoc checks of manifests that are not part of the audit
// configuration.
func (r *Runner) LintBytes(ctx context.Context, name string, data []byte) (*lint.Result, error) {
	m := manifest.ParseBytes(data)
	m.Path = name

	// Pins are read fresh on every call so edits take effect without a
	// runner rebuild.
	pins, err := LoadPins(r.deps.Config.PinsFile)
	if err != nil {
		return nil, err
	}

	return r.engine.Run(ctx, &lint.Target{Manifest: m, Pins: pins, Provider: r.deps.Provider})
}

// ReportPaths returns where audit reports for a configured manifest are
// written. ok is false for manifests outside the configuration.
func (r *Runner) ReportPaths(manifestPath string) (findings, licenses string, ok bool) {
	stem, ok := r.stems[manifestPath]
	if !ok {
		return "", "", false
	}
	dir := filepath.Join(r.deps.Config.DataDir, "reports")
	return filepath.Join(dir, stem+".findings.json"), filepath.Join(dir, stem+".licenses.json"), true
}
