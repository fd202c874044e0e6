// SPDX-License-Identifier: MIT

package jobs

import (
	"time"

	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/licenses"
	"github.com/reqwatch/reqwatch/internal/lint"
	"github.com/reqwatch/reqwatch/internal/manifest"
	"github.com/reqwatch/reqwatch/internal/store"
)

// Config carries the audit settings the runner needs. It is a snapshot:
// callers rebuild the runner when configuration changes.
type Config struct {
	DataDir     string
	Manifests   []string
	PinsFile    string
	Parallelism int
	Overrides   map[string]lint.Override
	Policy      licenses.Policy
}

// Deps bundles the runner's collaborators so tests can swap them out.
type Deps struct {
	Config   Config
	Provider index.Provider
	Store    store.Store
	Clock    func() time.Time
}

// Status is the most recent run outcome, served by the status endpoint.
type Status struct {
	Running          bool      `json:"running"`
	LastRun          time.Time `json:"lastRun"`
	LastRunID        string    `json:"lastRunId,omitempty"`
	Manifests        int       `json:"manifests"`
	Packages         int       `json:"packages"`
	Errors           int       `json:"errors"`
	Warnings         int       `json:"warnings"`
	Infos            int       `json:"infos"`
	PolicyViolations int       `json:"policyViolations"`
	Error            string    `json:"error,omitempty"`
}

// PolicyViolation records a license the configured policy rejects.
type PolicyViolation struct {
	Package string `json:"package"`
	SPDX    string `json:"spdx"`
	Verdict string `json:"verdict"`
}

// ManifestResult is the per-manifest outcome of an audit run.
type ManifestResult struct {
	Manifest     string            `json:"manifest"`
	Stats        manifest.Stats    `json:"stats"`
	Lint         *lint.Result      `json:"lint,omitempty"`
	Licenses     *licenses.Report  `json:"licenses,omitempty"`
	Policy       []PolicyViolation `json:"policy,omitempty"`
	FindingsPath string            `json:"findingsPath,omitempty"`
	LicensesPath string            `json:"licensesPath,omitempty"`
	Err          string            `json:"error,omitempty"`
}

// RunResult aggregates a full audit run across all configured manifests.
type RunResult struct {
	ID               string           `json:"id"`
	Trigger          string           `json:"trigger"`
	StartedAt        time.Time        `json:"startedAt"`
	FinishedAt       time.Time        `json:"finishedAt"`
	DurationMS       int64            `json:"durationMs"`
	Manifests        []ManifestResult `json:"manifests"`
	Packages         int              `json:"packages"`
	Errors           int              `json:"errors"`
	Warnings         int              `json:"warnings"`
	Infos            int              `json:"infos"`
	PolicyViolations int              `json:"policyViolations"`
	Success          bool             `json:"success"`
	Err              string           `json:"error,omitempty"`
}
