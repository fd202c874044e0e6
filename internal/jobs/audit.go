// SPDX-License-Identifier: MIT

// Package jobs runs the audit pipeline: parse each configured manifest,
// lint it, build its license report, write both reports atomically into
// the data directory, and record the run in the store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/reqwatch/reqwatch/internal/licenses"
	"github.com/reqwatch/reqwatch/internal/lint"
	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/manifest"
	"github.com/reqwatch/reqwatch/internal/metrics"
	"github.com/reqwatch/reqwatch/internal/store"
	"github.com/reqwatch/reqwatch/internal/telemetry"
)

// ErrAuditRunning is returned when an audit is requested while another
// one is still in flight.
var ErrAuditRunning = errors.New("audit already running")

// Runner executes audit runs one at a time. A trigger that arrives while
// a run is in flight gets ErrAuditRunning instead of queueing.
type Runner struct {
	deps   Deps
	engine *lint.Engine
	stems  map[string]string

	mu      sync.Mutex
	running bool
	status  Status
}

// NewRunner builds a runner from its dependencies. A nil Clock defaults
// to time.Now.
func NewRunner(deps Deps) *Runner {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Runner{
		deps:   deps,
		engine: lint.New(deps.Config.Overrides),
		stems:  reportStems(deps.Config.Manifests),
	}
}

// Status returns the outcome of the most recent run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Running = r.running
	return s
}

// Audit runs the full pipeline across all configured manifests. Lint
// findings never fail the run; they are counted on the result. The run
// fails only when a manifest cannot be read, linted, or reported on.
func (r *Runner) Audit(ctx context.Context, trigger string) (*RunResult, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAuditRunning
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	runID := uuid.New().String()
	ctx = log.ContextWithRunID(ctx, runID)

	ctx, span := telemetry.Tracer("reqwatch/jobs").Start(ctx, "audit.run",
		trace.WithAttributes(telemetry.AuditAttributes("", trigger, runID)...))
	defer span.End()

	// Derived after the span starts so log lines carry its trace ID.
	logger := log.WithContext(ctx, log.WithTraceContext(ctx)).
		With().Str(log.FieldComponent, "jobs").Logger()

	started := r.deps.Clock()
	logger.Info().
		Str("event", "audit.start").
		Str("trigger", trigger).
		Int("manifests", len(r.deps.Config.Manifests)).
		Msg("starting audit")

	run := &RunResult{ID: runID, Trigger: trigger, StartedAt: started}

	pins, err := LoadPins(r.deps.Config.PinsFile)
	if err != nil {
		// The run proceeds without pins so the remaining rules still
		// report, but it is marked failed: a silent pin-coverage skip
		// would mask the problem.
		metrics.IncAuditStageFailure("read")
		run.Err = err.Error()
		logger.Error().
			Err(err).
			Str("event", "audit.pins_failed").
			Str(log.FieldPath, r.deps.Config.PinsFile).
			Msg("pins file unreadable, auditing without pins")
	}

	results := make([]ManifestResult, len(r.deps.Config.Manifests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(clampParallelism(r.deps.Config.Parallelism))
	for i, path := range r.deps.Config.Manifests {
		g.Go(func() error {
			results[i] = r.auditManifest(gctx, path, pins)
			return nil
		})
	}
	_ = g.Wait() // workers report failure via ManifestResult.Err, never an error

	finished := r.deps.Clock()
	run.FinishedAt = finished
	run.DurationMS = finished.Sub(started).Milliseconds()
	run.Manifests = results

	for _, mr := range results {
		run.Packages += mr.Stats.Declared
		run.PolicyViolations += len(mr.Policy)
		if mr.Lint != nil {
			run.Errors += mr.Lint.Errors
			run.Warnings += mr.Lint.Warnings
			run.Infos += mr.Lint.Infos
		}
		if mr.Err != "" && run.Err == "" {
			run.Err = fmt.Sprintf("%s: %s", mr.Manifest, mr.Err)
		}
	}
	run.Success = run.Err == ""

	r.recordRun(ctx, run)

	outcome := "success"
	if !run.Success {
		outcome = "failure"
		span.SetStatus(codes.Error, run.Err)
	}
	metrics.IncAudit(trigger, outcome)
	metrics.ObserveAuditDuration(finished.Sub(started).Seconds())
	if run.Success {
		metrics.SetAuditLastSuccess(float64(finished.Unix()))
	}
	span.SetAttributes(telemetry.AuditResultAttributes(run.Packages, run.Errors+run.Warnings+run.Infos)...)

	r.mu.Lock()
	r.status = Status{
		LastRun:          finished,
		LastRunID:        runID,
		Manifests:        len(results),
		Packages:         run.Packages,
		Errors:           run.Errors,
		Warnings:         run.Warnings,
		Infos:            run.Infos,
		PolicyViolations: run.PolicyViolations,
		Error:            run.Err,
	}
	r.mu.Unlock()

	if run.Success {
		logger.Info().
			Str("event", "audit.success").
			Int("packages", run.Packages).
			Int(log.FieldFindings, run.Errors+run.Warnings+run.Infos).
			Int64(log.FieldDurationMS, run.DurationMS).
			Msg("audit completed")
	} else {
		logger.Error().
			Str("event", "audit.failed").
			Str("error", run.Err).
			Int64(log.FieldDurationMS, run.DurationMS).
			Msg("audit completed with failures")
	}
	return run, nil
}

// auditManifest runs the pipeline stages for a single manifest. Failures
// are returned in ManifestResult.Err so one broken manifest never stops
// the others.
func (r *Runner) auditManifest(ctx context.Context, path string, pins *manifest.Manifest) ManifestResult {
	logger := log.WithComponentFromContext(ctx, "jobs")

	ctx, span := telemetry.Tracer("reqwatch/jobs").Start(ctx, "audit.manifest",
		trace.WithAttributes(telemetry.AuditAttributes(path, "", "")...))
	defer span.End()

	res := ManifestResult{Manifest: path}
	fail := func(stage string, err error) ManifestResult {
		metrics.IncAuditStageFailure(stage)
		span.SetStatus(codes.Error, err.Error())
		res.Err = err.Error()
		logger.Error().
			Err(err).
			Str("event", "audit.manifest_failed").
			Str(log.FieldManifest, path).
			Str("stage", stage).
			Msg("manifest audit failed")
		return res
	}

	m, err := manifest.ParseFile(path)
	if err != nil {
		return fail("read", err)
	}
	res.Stats = m.Stats()
	metrics.RecordManifestPackages(path, res.Stats.Declared)

	lintRes, err := r.engine.Run(ctx, &lint.Target{Manifest: m, Pins: pins, Provider: r.deps.Provider})
	if err != nil {
		return fail("lint", err)
	}
	res.Lint = lintRes
	metrics.RecordManifestFindings(path, lintRes.Errors, lintRes.Warnings, lintRes.Infos)

	report := licenses.Build(m, r.deps.Clock())
	res.Licenses = report
	metrics.RecordManifestUnknownLicenses(path, report.Unknown+report.Unlabelled)

	res.Policy = evaluatePolicy(r.deps.Config.Policy, report)

	findingsPath, licensesPath, _ := r.ReportPaths(path)
	if err := writeJSONAtomic(ctx, findingsPath, lintRes); err != nil {
		metrics.IncReportWriteError()
		return fail("report", err)
	}
	res.FindingsPath = findingsPath

	if err := writeJSONAtomic(ctx, licensesPath, report); err != nil {
		metrics.IncReportWriteError()
		return fail("report", err)
	}
	res.LicensesPath = licensesPath

	logger.Info().
		Str("event", "audit.manifest").
		Str(log.FieldManifest, path).
		Int("packages", res.Stats.Declared).
		Int(log.FieldFindings, len(lintRes.Findings)).
		Int("policy_violations", len(res.Policy)).
		Msg("manifest audited")
	return res
}

// evaluatePolicy collects report entries whose SPDX id the configured
// policy does not allow. Unrecognized labels are the license-annotation
// rule's concern, not the policy's.
func evaluatePolicy(policy licenses.Policy, report *licenses.Report) []PolicyViolation {
	if policy.Empty() {
		return nil
	}
	var violations []PolicyViolation
	for _, e := range report.Entries {
		if e.SPDX == "" {
			continue
		}
		if v := policy.Evaluate(e.SPDX); v != licenses.VerdictAllowed {
			violations = append(violations, PolicyViolation{
				Package: e.Package,
				SPDX:    e.SPDX,
				Verdict: v.String(),
			})
		}
	}
	return violations
}

func (r *Runner) recordRun(ctx context.Context, run *RunResult) {
	if r.deps.Store == nil {
		return
	}
	rec := &store.Run{
		ID:         run.ID,
		Manifest:   strings.Join(r.deps.Config.Manifests, ","),
		Trigger:    run.Trigger,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMS: run.DurationMS,
		Packages:   run.Packages,
		Errors:     run.Errors,
		Warnings:   run.Warnings,
		Infos:      run.Infos,
		Success:    run.Success,
		Err:        run.Err,
	}
	if err := r.deps.Store.PutRun(ctx, rec); err != nil {
		metrics.IncAuditStageFailure("store")
		logger := log.WithComponentFromContext(ctx, "jobs")
		logger.Error().
			Err(err).
			Str("event", "audit.store_failed").
			Msg("failed to record audit run")
	}
}

func clampParallelism(n int) int {
	if n < 1 {
		return 1
	}
	if n > 32 {
		return 32
	}
	return n
}
