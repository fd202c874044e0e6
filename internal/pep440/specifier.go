// SPDX-License-Identifier: MIT

package pep440

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is a PEP 440 comparison operator.
type Operator string

const (
	OpCompatible Operator = "~="
	OpEqual      Operator = "=="
	OpNotEqual   Operator = "!="
	OpGreaterEq  Operator = ">="
	OpLessEq     Operator = "<="
	OpGreater    Operator = ">"
	OpLess       Operator = "<"
	OpArbitrary  Operator = "==="
)

// operator prefixes ordered longest-first so "===" wins over "==".
var operatorOrder = []Operator{
	OpArbitrary, OpCompatible, OpEqual, OpNotEqual, OpGreaterEq, OpLessEq, OpGreater, OpLess,
}

// Specifier is a single version clause such as ">=2.1" or "==1.4.*".
type Specifier struct {
	Op   Operator
	Text string // version text as written, wildcard suffix preserved

	version  Version
	haveVer  bool
	wildcard bool
}

// ParseSpecifier parses one clause of a version specifier.
func ParseSpecifier(s string) (Specifier, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Specifier{}, fmt.Errorf("%w: empty clause", ErrInvalidSpecifier)
	}

	var op Operator
	for _, candidate := range operatorOrder {
		if strings.HasPrefix(trimmed, string(candidate)) {
			op = candidate
			break
		}
	}
	if op == "" {
		return Specifier{}, fmt.Errorf("%w: missing operator in %q", ErrInvalidSpecifier, s)
	}

	text := strings.TrimSpace(strings.TrimPrefix(trimmed, string(op)))
	if text == "" {
		return Specifier{}, fmt.Errorf("%w: missing version in %q", ErrInvalidSpecifier, s)
	}

	spec := Specifier{Op: op, Text: text}

	switch op {
	case OpArbitrary:
		// Arbitrary equality accepts any non-empty string; keep a parsed
		// version when the text happens to be one, for floor detection.
		if v, err := ParseVersion(text); err == nil {
			spec.version = v
			spec.haveVer = true
		}
	case OpEqual, OpNotEqual:
		verText := text
		if strings.HasSuffix(verText, ".*") {
			spec.wildcard = true
			verText = strings.TrimSuffix(verText, ".*")
		}
		v, err := ParseVersion(verText)
		if err != nil {
			return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s)
		}
		if spec.wildcard && (v.Local != "" || v.Pre != nil || v.Post != nil || v.Dev != nil) {
			return Specifier{}, fmt.Errorf("%w: wildcard after non-release segment in %q", ErrInvalidSpecifier, s)
		}
		if v.Local != "" && op == OpNotEqual {
			// Local labels are only meaningful for == per PEP 440.
			return Specifier{}, fmt.Errorf("%w: local version with != in %q", ErrInvalidSpecifier, s)
		}
		spec.version = v
		spec.haveVer = true
	default:
		v, err := ParseVersion(text)
		if err != nil {
			return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s)
		}
		if v.Local != "" {
			return Specifier{}, fmt.Errorf("%w: local version with ordered comparison in %q", ErrInvalidSpecifier, s)
		}
		if op == OpCompatible && len(v.Release) < 2 {
			return Specifier{}, fmt.Errorf("%w: ~= needs at least two release segments in %q", ErrInvalidSpecifier, s)
		}
		spec.version = v
		spec.haveVer = true
	}

	return spec, nil
}

// String renders the canonical clause form, operator directly followed by
// the normalised version.
func (s Specifier) String() string {
	if !s.haveVer {
		return string(s.Op) + s.Text
	}
	text := s.version.String()
	if s.wildcard {
		text += ".*"
	}
	return string(s.Op) + text
}

// Matches reports whether the candidate version satisfies the clause.
// Pre-release eligibility policy is deliberately left to callers; a clause
// is evaluated by pure PEP 440 comparison semantics.
func (s Specifier) Matches(v Version) bool {
	switch s.Op {
	case OpArbitrary:
		return strings.EqualFold(s.Text, v.String()) || strings.EqualFold(s.Text, v.Original())
	case OpEqual:
		return s.equalMatch(v)
	case OpNotEqual:
		return !s.equalMatch(v)
	case OpGreaterEq:
		return v.WithoutLocal().Compare(s.version) >= 0
	case OpLessEq:
		return v.WithoutLocal().Compare(s.version) <= 0
	case OpGreater:
		return s.greaterMatch(v)
	case OpLess:
		return s.lessMatch(v)
	case OpCompatible:
		return s.compatibleMatch(v)
	}
	return false
}

func (s Specifier) equalMatch(v Version) bool {
	if s.wildcard {
		return v.Epoch == s.version.Epoch && releaseHasPrefix(v.Release, s.version.Release)
	}
	spec := s.version
	if spec.Epoch != v.Epoch {
		return false
	}
	if cmpIntSlices(spec.Release, v.Release) != 0 {
		return false
	}
	if !tagEqual(spec.Pre, v.Pre) || !intPtrEqual(spec.Post, v.Post) || !intPtrEqual(spec.Dev, v.Dev) {
		return false
	}
	// A public specifier version ignores the candidate's local label.
	if spec.Local != "" && spec.Local != v.Local {
		return false
	}
	return true
}

// greaterMatch excludes post releases and local variants of the boundary
// version itself, per the PEP 440 exclusive ordered comparison rules.
func (s Specifier) greaterMatch(v Version) bool {
	vv := v.WithoutLocal()
	if vv.Compare(s.version) <= 0 {
		return false
	}
	if !s.version.IsPostrelease() && vv.IsPostrelease() && baseEqual(vv, s.version) {
		return false
	}
	if v.Local != "" && baseEqual(vv, s.version) {
		return false
	}
	return true
}

func (s Specifier) lessMatch(v Version) bool {
	vv := v.WithoutLocal()
	if vv.Compare(s.version) >= 0 {
		return false
	}
	if !s.version.IsPrerelease() && vv.IsPrerelease() && baseEqual(vv, s.version) {
		return false
	}
	return true
}

func (s Specifier) compatibleMatch(v Version) bool {
	if v.WithoutLocal().Compare(s.version) < 0 {
		return false
	}
	prefix := s.version.Release[:len(s.version.Release)-1]
	return v.Epoch == s.version.Epoch && releaseHasPrefix(v.Release, prefix)
}

// lowerBound returns the minimum version the clause implies, if any.
func (s Specifier) lowerBound() (Version, bool) {
	switch s.Op {
	case OpGreaterEq, OpGreater, OpCompatible, OpEqual, OpArbitrary:
		if s.haveVer {
			return s.version, true
		}
	}
	return Version{}, false
}

func baseEqual(a, b Version) bool {
	return a.Epoch == b.Epoch && cmpIntSlices(a.Release, b.Release) == 0
}

func releaseHasPrefix(release, prefix []int) bool {
	for i, want := range prefix {
		have := 0
		if i < len(release) {
			have = release[i]
		}
		if have != want {
			return false
		}
	}
	return true
}

func tagEqual(a, b *Tag) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Label == b.Label && a.N == b.N
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SpecifierSet is a comma-separated conjunction of clauses.
type SpecifierSet []Specifier

// ParseSpecifierSet parses a full specifier such as ">=1.21.1,<2.0".
// An empty string yields an empty set, which matches every version.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return SpecifierSet{}, nil
	}
	parts := strings.Split(trimmed, ",")
	set := make(SpecifierSet, 0, len(parts))
	for _, part := range parts {
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// MustSpecifierSet parses s and panics on error. For tests and constants.
func MustSpecifierSet(s string) SpecifierSet {
	set, err := ParseSpecifierSet(s)
	if err != nil {
		panic(err)
	}
	return set
}

// Contains reports whether the candidate satisfies every clause.
func (ss SpecifierSet) Contains(v Version) bool {
	for _, spec := range ss {
		if !spec.Matches(v) {
			return false
		}
	}
	return true
}

// Floor returns the highest lower bound any clause imposes. ok is false
// when no clause constrains the minimum version.
func (ss SpecifierSet) Floor() (Version, bool) {
	var floor Version
	found := false
	for _, spec := range ss {
		v, ok := spec.lowerBound()
		if !ok {
			continue
		}
		if !found || floor.LessThan(v) {
			floor = v
			found = true
		}
	}
	return floor, found
}

// String renders the set in declaration order.
func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss))
	for i, spec := range ss {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}

// Canonical renders the set order-insensitively, for equality checks
// between independently written declarations.
func (ss SpecifierSet) Canonical() string {
	parts := make([]string, len(ss))
	for i, spec := range ss {
		parts[i] = spec.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
