// SPDX-License-Identifier: MIT

package lint

import (
	"context"
	"fmt"
	"strings"

	"github.com/reqwatch/reqwatch/internal/licenses"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

// Rule IDs, also the keys for config overrides.
const (
	RuleSyntax           = "syntax"
	RuleSpecifierValid   = "specifier-valid"
	RuleConflict         = "conflict"
	RuleDuplicate        = "duplicate"
	RuleLicense          = "license-annotation"
	RulePinCoverage      = "pin-coverage"
	RuleInstallOrder     = "install-order"
	RuleIndirectCoverage = "indirect-coverage"
	RuleLicenseMismatch  = "registry-license-mismatch"
)

// RuleIDs lists every built-in rule ID in execution order.
func RuleIDs() []string {
	rules := defaultRules()
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

// defaultRules returns the rule set in execution order. Rules that need
// a metadata provider run last and skip themselves when none is set.
func defaultRules() []Rule {
	return []Rule{
		{ID: RuleSyntax, Severity: SeverityError,
			Description: "declaration lines must parse", Check: checkSyntax},
		{ID: RuleSpecifierValid, Severity: SeverityError,
			Description: "constraints must be valid and carry a minimum-version floor", Check: checkSpecifiers},
		{ID: RuleConflict, Severity: SeverityError,
			Description: "a package must not be declared twice with different constraints", Check: checkConflicts},
		{ID: RuleDuplicate, Severity: SeverityWarning,
			Description: "a package should be declared once", Check: checkDuplicates},
		{ID: RuleLicense, Severity: SeverityWarning,
			Description: "declarations should carry a recognised license comment", Check: checkLicenses},
		{ID: RulePinCoverage, Severity: SeverityError,
			Description: "every package must be pinned in the configured pins file", Check: checkPins},
		{ID: RuleInstallOrder, Severity: SeverityWarning,
			Description: "requirements should be declared before their dependents", Check: checkInstallOrder},
		{ID: RuleIndirectCoverage, Severity: SeverityError,
			Description: "documented indirects must be required by a declaration above them", Check: checkIndirectCoverage},
		{ID: RuleLicenseMismatch, Severity: SeverityInfo,
			Description: "manifest license comments should agree with the registry", Check: checkRegistryLicenses},
	}
}

func checkSyntax(_ context.Context, t *Target, sev Severity) ([]Finding, error) {
	var findings []Finding
	for _, line := range t.Manifest.Lines {
		if line.Kind == manifest.KindRequirement && line.Err != nil {
			findings = append(findings, Finding{
				Rule:     RuleSyntax,
				Severity: sev,
				Line:     line.Number,
				Message:  fmt.Sprintf("not a valid declaration: %q", strings.TrimSpace(line.Raw)),
			})
		}
	}
	return findings, nil
}

func checkSpecifiers(_ context.Context, t *Target, sev Severity) ([]Finding, error) {
	var findings []Finding
	for _, line := range t.Manifest.Lines {
		req := line.Req
		if req == nil {
			continue
		}
		switch {
		case req.ConstraintErr != nil:
			findings = append(findings, Finding{
				Rule:     RuleSpecifierValid,
				Severity: sev,
				Line:     line.Number,
				Package:  req.Canonical,
				Message:  fmt.Sprintf("invalid constraint %q: %v", req.RawConstraint, req.ConstraintErr),
			})
		case req.RawConstraint != "":
			if _, ok := req.Floor(); !ok {
				findings = append(findings, Finding{
					Rule:     RuleSpecifierValid,
					Severity: sev,
					Line:     line.Number,
					Package:  req.Canonical,
					Message:  fmt.Sprintf("constraint %q has no minimum-version floor", req.RawConstraint),
				})
			}
		}
	}
	return findings, nil
}

func checkConflicts(_ context.Context, t *Target, sev Severity) ([]Finding, error) {
	var findings []Finding
	first := map[string]manifest.Requirement{}
	for _, req := range t.Manifest.Declared() {
		prev, seen := first[req.Canonical]
		if !seen {
			first[req.Canonical] = req
			continue
		}
		if req.ConstraintErr != nil || prev.ConstraintErr != nil {
			continue
		}
		if req.Constraint.Canonical() != prev.Constraint.Canonical() {
			findings = append(findings, Finding{
				Rule:     RuleConflict,
				Severity: sev,
				Line:     req.Line,
				Package:  req.Canonical,
				Message: fmt.Sprintf("%s declared with %q conflicts with %q on line %d",
					req.Name, req.Constraint.String(), prev.Constraint.String(), prev.Line),
			})
		}
	}
	return findings, nil
}

func checkDuplicates(_ context.Context, t *Target, sev Severity) ([]Finding, error) {
	var findings []Finding
	first := map[string]manifest.Requirement{}
	for _, req := range t.Manifest.Declared() {
		prev, seen := first[req.Canonical]
		if !seen {
			first[req.Canonical] = req
			continue
		}
		if req.ConstraintErr != nil || prev.ConstraintErr != nil {
			continue
		}
		if req.Constraint.Canonical() == prev.Constraint.Canonical() {
			findings = append(findings, Finding{
				Rule:     RuleDuplicate,
				Severity: sev,
				Line:     req.Line,
				Package:  req.Canonical,
				Message:  fmt.Sprintf("%s already declared on line %d", req.Name, prev.Line),
			})
		}
	}
	for _, doc := range t.Manifest.DocumentedIndirect() {
		if decl, ok := first[doc.Canonical]; ok {
			findings = append(findings, Finding{
				Rule:     RuleDuplicate,
				Severity: sev,
				Line:     doc.Line,
				Package:  doc.Canonical,
				Message:  fmt.Sprintf("%s is declared on line %d but also documented as indirect", doc.Name, decl.Line),
			})
		}
	}
	return findings, nil
}

func checkLicenses(_ context.Context, t *Target, sev Severity) ([]Finding, error) {
	var findings []Finding
	for _, line := range t.Manifest.Lines {
		req := line.Req
		if req == nil {
			continue
		}
		switch {
		case req.License == "" && line.Kind == manifest.KindRequirement:
			findings = append(findings, Finding{
				Rule:     RuleLicense,
				Severity: sev,
				Line:     line.Number,
				Package:  req.Canonical,
				Message:  fmt.Sprintf("%s has no license comment", req.Name),
			})
		case req.License != "":
			if id := licenses.Identify(req.License); !id.Known {
				findings = append(findings, Finding{
					Rule:     RuleLicense,
					Severity: sev,
					Line:     line.Number,
					Package:  req.Canonical,
					Message:  fmt.Sprintf("unrecognised license %q", req.License),
				})
			}
		}
	}
	return findings, nil
}

func checkPins(_ context.Context, t *Target, sev Severity) ([]Finding, error) {
	if t.Pins == nil {
		return nil, nil
	}
	pins := map[string]manifest.Requirement{}
	for _, req := range t.Pins.Declared() {
		if _, ok := pins[req.Canonical]; !ok {
			pins[req.Canonical] = req
		}
	}
	pinsName := t.Pins.Path
	if pinsName == "" {
		pinsName = "the pins file"
	}

	var findings []Finding
	check := func(req manifest.Requirement) {
		pin, ok := pins[req.Canonical]
		if !ok {
			findings = append(findings, Finding{
				Rule:     RulePinCoverage,
				Severity: sev,
				Line:     req.Line,
				Package:  req.Canonical,
				Message:  fmt.Sprintf("%s is not pinned in %s", req.Name, pinsName),
			})
			return
		}
		pinned, ok := pin.Floor()
		if !ok {
			findings = append(findings, Finding{
				Rule:     RulePinCoverage,
				Severity: sev,
				Line:     req.Line,
				Package:  req.Canonical,
				Message:  fmt.Sprintf("pin for %s in %s carries no version", req.Name, pinsName),
			})
			return
		}
		if req.ConstraintErr != nil || len(req.Constraint) == 0 {
			return
		}
		if !req.Constraint.Contains(pinned) {
			findings = append(findings, Finding{
				Rule:     RulePinCoverage,
				Severity: sev,
				Line:     req.Line,
				Package:  req.Canonical,
				Message:  fmt.Sprintf("pin %s==%s does not satisfy %s", req.Name, pinned.String(), req.Constraint.String()),
			})
		}
	}
	for _, req := range t.Manifest.Declared() {
		check(req)
	}
	for _, req := range t.Manifest.DocumentedIndirect() {
		check(req)
	}
	return findings, nil
}
