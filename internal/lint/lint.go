// SPDX-License-Identifier: MIT

// Package lint checks requirements manifests for hygiene violations:
// constraint syntax, duplicate declarations, documented-indirect
// coverage, declaration order, license annotations and pin coverage.
package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

// Severity ranks findings. Errors fail a lint run, warnings and infos
// do not.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return "unknown"
}

// ParseSeverity reads a severity name as spelled in config overrides.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// MarshalJSON renders the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a severity name.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	sev, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Finding is one rule violation, attached to a manifest line where one
// applies. Line 0 means the finding concerns the file as a whole.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
	Package  string   `json:"package,omitempty"`
	Message  string   `json:"message"`
}

// Result aggregates the findings of one lint run.
type Result struct {
	Manifest   string    `json:"manifest,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
	DurationMS int64     `json:"duration_ms"`
	Findings   []Finding `json:"findings"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
	Infos      int       `json:"infos"`
}

// HasErrors reports whether any finding has error severity.
func (r *Result) HasErrors() bool { return r.Errors > 0 }

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	switch f.Severity {
	case SeverityError:
		r.Errors++
	case SeverityWarning:
		r.Warnings++
	case SeverityInfo:
		r.Infos++
	}
}

// Target bundles what the rules inspect: the manifest under lint, an
// optional pins manifest and an optional metadata provider. Provider
// lookups are memoised per target, so one lint run resolves each
// package at most once.
type Target struct {
	Manifest *manifest.Manifest
	Pins     *manifest.Manifest
	Provider index.Provider

	memo *resolver
}

// CheckFunc inspects the target and returns findings. sev is the
// effective severity for the rule's primary findings. A returned error
// aborts the run; degraded index lookups surface as warning findings
// instead so one slow registry does not sink the whole report.
type CheckFunc func(ctx context.Context, t *Target, sev Severity) ([]Finding, error)

// Rule is one named check with its default severity.
type Rule struct {
	ID          string
	Description string
	Severity    Severity
	Check       CheckFunc
}

// Override adjusts a single rule from configuration.
type Override struct {
	Disabled bool
	Severity *Severity
}

// Engine runs the rule set over a target.
type Engine struct {
	rules     []Rule
	overrides map[string]Override
	log       zerolog.Logger
}

// New builds an engine with the default rule set and the given
// per-rule overrides, keyed by rule ID.
func New(overrides map[string]Override) *Engine {
	return &Engine{
		rules:     defaultRules(),
		overrides: overrides,
		log:       log.WithComponent("lint"),
	}
}

// Rules returns a copy of the rule set, for validating override keys.
func (e *Engine) Rules() []Rule {
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	return rules
}

// Run applies every enabled rule in order and returns the aggregated,
// line-sorted result.
func (e *Engine) Run(ctx context.Context, t *Target) (*Result, error) {
	start := time.Now()
	res := &Result{
		Manifest:  t.Manifest.Path,
		CheckedAt: start.UTC(),
		Findings:  []Finding{},
	}

	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ov := e.overrides[rule.ID]
		if ov.Disabled {
			continue
		}
		sev := rule.Severity
		if ov.Severity != nil {
			sev = *ov.Severity
		}
		findings, err := rule.Check(ctx, t, sev)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		for _, f := range findings {
			res.add(f)
		}
	}

	sort.SliceStable(res.Findings, func(i, j int) bool {
		a, b := res.Findings[i], res.Findings[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Package < b.Package
	})

	res.DurationMS = time.Since(start).Milliseconds()
	e.log.Debug().
		Str("event", "lint.done").
		Str(log.FieldManifest, res.Manifest).
		Int(log.FieldFindings, len(res.Findings)).
		Int("errors", res.Errors).
		Int64(log.FieldDurationMS, res.DurationMS).
		Msg("lint finished")
	return res, nil
}
