// SPDX-License-Identifier: MIT

package lint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/licenses"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

// resolver memoises provider lookups for one target. It implements
// index.Provider itself so closure walks share the project cache.
type resolver struct {
	provider index.Provider
	projects map[string]projectResult
	closures map[string]closureResult
}

type projectResult struct {
	project *index.Project
	err     error
}

type closureResult struct {
	closure *index.Closure
	err     error
}

func (t *Target) resolver() *resolver {
	if t.memo == nil {
		t.memo = &resolver{
			provider: t.Provider,
			projects: map[string]projectResult{},
			closures: map[string]closureResult{},
		}
	}
	return t.memo
}

func (r *resolver) Project(ctx context.Context, name string) (*index.Project, error) {
	canonical := manifest.CanonicalName(name)
	if hit, ok := r.projects[canonical]; ok {
		return hit.project, hit.err
	}
	p, err := r.provider.Project(ctx, canonical)
	r.projects[canonical] = projectResult{project: p, err: err}
	return p, err
}

func (r *resolver) Requires(ctx context.Context, name string) ([]string, error) {
	p, err := r.Project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Requires, nil
}

func (r *resolver) closureOf(ctx context.Context, root string) (*index.Closure, error) {
	canonical := manifest.CanonicalName(root)
	if hit, ok := r.closures[canonical]; ok {
		return hit.closure, hit.err
	}
	c, err := index.TransitiveRequirements(ctx, r, []string{canonical})
	r.closures[canonical] = closureResult{closure: c, err: err}
	return c, err
}

// indexDegraded is the finding emitted when the registry cannot be
// reached: the rule gives up for this run instead of failing it.
func indexDegraded(rule string, err error) Finding {
	return Finding{
		Rule:     rule,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("index lookup failed, remaining checks skipped: %v", err),
	}
}

func checkInstallOrder(ctx context.Context, t *Target, sev Severity) ([]Finding, error) {
	var findings []Finding

	// Shape first: documentation of indirects follows the declarations.
	indirectSeen := false
	for _, line := range t.Manifest.Lines {
		switch {
		case line.Kind == manifest.KindSection && line.Section == manifest.SectionIndirect:
			indirectSeen = true
		case line.Kind == manifest.KindSection && line.Section == manifest.SectionDirect && indirectSeen:
			findings = append(findings, Finding{
				Rule:     RuleInstallOrder,
				Severity: sev,
				Line:     line.Number,
				Message:  "direct dependencies section opens after the indirect section",
			})
		case line.Kind == manifest.KindRequirement && line.Err == nil && line.Section == manifest.SectionIndirect:
			findings = append(findings, Finding{
				Rule:     RuleInstallOrder,
				Severity: sev,
				Line:     line.Number,
				Package:  line.Req.Canonical,
				Message:  fmt.Sprintf("%s is declared inside the indirect section", line.Req.Name),
			})
		}
	}

	if t.Provider == nil {
		return findings, nil
	}

	declared := t.Manifest.Declared()
	byName := map[string]manifest.Requirement{}
	for _, req := range declared {
		if _, ok := byName[req.Canonical]; !ok {
			byName[req.Canonical] = req
		}
	}

	r := t.resolver()
	for _, req := range declared {
		closure, err := r.closureOf(ctx, req.Canonical)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			findings = append(findings, indexDegraded(RuleInstallOrder, err))
			return findings, nil
		}
		for name := range closure.Members {
			dep, ok := byName[name]
			if !ok || dep.Line <= req.Line {
				continue
			}
			findings = append(findings, Finding{
				Rule:     RuleInstallOrder,
				Severity: sev,
				Line:     dep.Line,
				Package:  dep.Canonical,
				Message: fmt.Sprintf("%s is required by %s (line %d) and should be declared before it",
					dep.Name, req.Name, req.Line),
			})
		}
	}
	return findings, nil
}

func checkIndirectCoverage(ctx context.Context, t *Target, sev Severity) ([]Finding, error) {
	if t.Provider == nil {
		return nil, nil
	}

	var findings []Finding
	r := t.resolver()
	var directsAbove []string
	for _, line := range t.Manifest.Lines {
		if line.Kind == manifest.KindRequirement && line.Err == nil {
			directsAbove = append(directsAbove, line.Req.Canonical)
			continue
		}
		if line.Kind != manifest.KindIndirect || line.Req == nil {
			continue
		}

		covered := false
		unresolved := map[string]bool{}
		for _, root := range directsAbove {
			closure, err := r.closureOf(ctx, root)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				findings = append(findings, indexDegraded(RuleIndirectCoverage, err))
				return findings, nil
			}
			if closure.Members[line.Req.Canonical] {
				covered = true
				break
			}
			for _, name := range closure.Unresolved {
				unresolved[name] = true
			}
		}
		switch {
		case covered:
		case len(unresolved) > 0:
			findings = append(findings, Finding{
				Rule:     RuleIndirectCoverage,
				Severity: SeverityWarning,
				Line:     line.Number,
				Package:  line.Req.Canonical,
				Message: fmt.Sprintf("cannot verify %s: unresolved packages %s",
					line.Req.Name, joinSorted(unresolved)),
			})
		default:
			findings = append(findings, Finding{
				Rule:     RuleIndirectCoverage,
				Severity: sev,
				Line:     line.Number,
				Package:  line.Req.Canonical,
				Message:  fmt.Sprintf("%s is not required by any dependency declared above it", line.Req.Name),
			})
		}
	}
	return findings, nil
}

func checkRegistryLicenses(ctx context.Context, t *Target, sev Severity) ([]Finding, error) {
	if t.Provider == nil {
		return nil, nil
	}

	var findings []Finding
	r := t.resolver()
	degraded := false
	check := func(req manifest.Requirement) {
		if degraded || req.License == "" {
			return
		}
		declared := licenses.Identify(req.License)
		if !declared.Known {
			return // the label itself is a license-annotation finding
		}
		p, err := r.Project(ctx, req.Canonical)
		if errors.Is(err, index.ErrNotFound) {
			return
		}
		if err != nil {
			findings = append(findings, indexDegraded(RuleLicenseMismatch, err))
			degraded = true
			return
		}
		registry := licenses.Identify(p.License)
		if p.License == "" || !registry.Known || registry.SPDX == declared.SPDX {
			return
		}
		findings = append(findings, Finding{
			Rule:     RuleLicenseMismatch,
			Severity: sev,
			Line:     req.Line,
			Package:  req.Canonical,
			Message: fmt.Sprintf("manifest says %s but the registry reports %s (%q)",
				declared.SPDX, registry.SPDX, p.License),
		})
	}
	for _, req := range t.Manifest.Declared() {
		check(req)
	}
	for _, req := range t.Manifest.DocumentedIndirect() {
		check(req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return findings, nil
}

func joinSorted(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
