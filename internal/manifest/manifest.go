// SPDX-License-Identifier: MIT

// Package manifest models pip requirements manifests: a line-oriented
// format where each declaration names one package with an optional
// minimum-version constraint and an inline license comment, and where
// comment lines carry section headers and document transitively
// pulled-in packages without declaring them.
package manifest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/reqwatch/reqwatch/internal/pep440"
)

// LineKind discriminates parsed manifest lines.
type LineKind int

const (
	KindBlank LineKind = iota
	KindComment
	KindSection
	KindIndirect
	KindRequirement
)

// String returns a short identifier for logs and findings.
func (k LineKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindSection:
		return "section"
	case KindIndirect:
		return "indirect"
	case KindRequirement:
		return "requirement"
	}
	return "unknown"
}

// Section identifies which part of the manifest a line belongs to.
type Section int

const (
	SectionNone Section = iota
	SectionDirect
	SectionIndirect
)

// String returns a short identifier for logs and findings.
func (s Section) String() string {
	switch s {
	case SectionDirect:
		return "direct"
	case SectionIndirect:
		return "indirect"
	}
	return "none"
}

// Requirement is one package reference, either declared on its own line
// or documented inside a comment of the indirect section.
type Requirement struct {
	Name          string   `json:"name"`
	Canonical     string   `json:"canonical"`
	Extras        []string `json:"extras,omitempty"`
	RawConstraint string   `json:"constraint,omitempty"`
	Marker        string   `json:"marker,omitempty"`
	License       string   `json:"license,omitempty"`
	Line          int      `json:"line"`

	Constraint    pep440.SpecifierSet `json:"-"`
	ConstraintErr error               `json:"-"`
}

// Floor returns the minimum version the constraint imposes, if any.
func (r *Requirement) Floor() (pep440.Version, bool) {
	if r.Constraint == nil {
		return pep440.Version{}, false
	}
	return r.Constraint.Floor()
}

// Line is one raw manifest line together with its classification.
type Line struct {
	Kind    LineKind
	Raw     string
	Number  int
	Section Section
	Req     *Requirement
	Err     error
}

// Manifest is a fully parsed requirements file. Raw line text is kept so
// the file can be reproduced byte for byte; ordering is significant to
// the downstream installer and is never changed here.
type Manifest struct {
	Path            string
	Lines           []Line
	TrailingNewline bool
}

// Declared returns every declaration line's requirement, in file order.
func (m *Manifest) Declared() []Requirement {
	var reqs []Requirement
	for _, line := range m.Lines {
		if line.Kind == KindRequirement && line.Req != nil {
			reqs = append(reqs, *line.Req)
		}
	}
	return reqs
}

// DocumentedIndirect returns the packages documented in comments of the
// indirect section, in file order.
func (m *Manifest) DocumentedIndirect() []Requirement {
	var reqs []Requirement
	for _, line := range m.Lines {
		if line.Kind == KindIndirect && line.Req != nil {
			reqs = append(reqs, *line.Req)
		}
	}
	return reqs
}

// Stats summarises the manifest shape for status reporting and metrics.
type Stats struct {
	Declared   int `json:"declared"`
	Documented int `json:"documented"`
	Comments   int `json:"comments"`
	Blanks     int `json:"blanks"`
	Malformed  int `json:"malformed"`
}

// Stats counts the line classes of the manifest.
func (m *Manifest) Stats() Stats {
	var s Stats
	for _, line := range m.Lines {
		switch line.Kind {
		case KindRequirement:
			if line.Err != nil {
				s.Malformed++
			} else {
				s.Declared++
			}
		case KindIndirect:
			s.Documented++
		case KindComment, KindSection:
			s.Comments++
		case KindBlank:
			s.Blanks++
		}
	}
	return s
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// CanonicalName normalises a package name: Unicode NFC, lower case, and
// runs of '-', '_' and '.' collapsed to a single '-'. Two names that
// canonicalise equally refer to the same package.
func CanonicalName(name string) string {
	n := norm.NFC.String(name)
	n = strings.ToLower(strings.TrimSpace(n))
	return nameSeparators.ReplaceAllString(n, "-")
}
