// SPDX-License-Identifier: MIT

package manifest

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/reqwatch/reqwatch/internal/pep440"
)

// PEP 508 name, optional extras, optional constraint (parenthesised or
// bare), optional environment marker. The inline comment is split off
// before this pattern is applied.
var requirementPattern = regexp.MustCompile(
	`^(?P<name>[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)` +
		`\s*(?:\[(?P<extras>[^\]]*)\])?` +
		`\s*(?P<constraint>\([^)]*\)|[<>=!~][^;]*)?` +
		`\s*(?:;\s*(?P<marker>.+))?$`)

// ParseFile reads and parses the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m := ParseBytes(data)
	m.Path = path
	return m, nil
}

// Parse reads the full manifest from r.
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseBytes(data), nil
}

// ParseBytes classifies every line of the manifest. Malformed declaration
// lines are kept with their error attached rather than failing the whole
// file, so hygiene checks can report them with line positions.
func ParseBytes(data []byte) *Manifest {
	content := string(data)
	m := &Manifest{}

	lines := strings.Split(content, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		m.TrailingNewline = true
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 1 && lines[0] == "" {
		return m
	}

	section := SectionNone
	for i, raw := range lines {
		number := i + 1
		line := Line{Raw: raw, Number: number}
		// TrimSpace also drops a CR left behind by CRLF files; Raw keeps
		// the original bytes so rendering stays byte-faithful.
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			line.Kind = KindBlank
		case strings.HasPrefix(trimmed, "#"):
			content := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			if sec, ok := detectSection(content); ok {
				section = sec
				line.Kind = KindSection
			} else if req, ok := parseDocComment(content, number); ok && section == SectionIndirect {
				line.Kind = KindIndirect
				line.Req = req
			} else {
				line.Kind = KindComment
			}
		default:
			line.Kind = KindRequirement
			req, err := parseRequirement(trimmed, number)
			if err != nil {
				line.Err = err
			} else {
				line.Req = req
			}
		}

		line.Section = section
		m.Lines = append(m.Lines, line)
	}

	return m
}

// detectSection recognises the conventional section header comments.
func detectSection(content string) (Section, bool) {
	lc := strings.ToLower(content)
	switch {
	case strings.Contains(lc, "indirect dependencies"):
		return SectionIndirect, true
	case strings.Contains(lc, "direct dependencies"):
		return SectionDirect, true
	}
	return SectionNone, false
}

// parseDocComment interprets a comment as a documented indirect package.
// A bare word with neither constraint nor license note is prose, not a
// dependency note.
func parseDocComment(content string, number int) (*Requirement, bool) {
	req, err := parseRequirement(content, number)
	if err != nil {
		return nil, false
	}
	if req.RawConstraint == "" && req.License == "" {
		return nil, false
	}
	return req, true
}

func parseRequirement(text string, number int) (*Requirement, error) {
	spec, license := splitInlineComment(text)
	if spec == "" {
		return nil, fmt.Errorf("line %d: empty requirement", number)
	}

	m := requirementPattern.FindStringSubmatch(spec)
	if m == nil {
		return nil, fmt.Errorf("line %d: not a requirement: %q", number, spec)
	}
	group := func(name string) string {
		return strings.TrimSpace(m[requirementPattern.SubexpIndex(name)])
	}

	req := &Requirement{
		Name:    group("name"),
		License: license,
		Marker:  group("marker"),
		Line:    number,
	}
	req.Canonical = CanonicalName(req.Name)

	if extras := group("extras"); extras != "" {
		for _, extra := range strings.Split(extras, ",") {
			if e := strings.TrimSpace(extra); e != "" {
				req.Extras = append(req.Extras, e)
			}
		}
	}

	constraint := group("constraint")
	if strings.HasPrefix(constraint, "(") && strings.HasSuffix(constraint, ")") {
		constraint = strings.TrimSpace(constraint[1 : len(constraint)-1])
	}
	if constraint != "" {
		req.RawConstraint = constraint
		set, err := pep440.ParseSpecifierSet(constraint)
		if err != nil {
			req.ConstraintErr = err
		} else {
			req.Constraint = set
		}
	}

	return req, nil
}

// splitInlineComment splits off an inline comment. A '#' opens a comment
// at the start of the text or when preceded by whitespace; a glued '#'
// stays part of the requirement token.
func splitInlineComment(text string) (string, string) {
	for i := 0; i < len(text); i++ {
		if text[i] != '#' {
			continue
		}
		if i == 0 || text[i-1] == ' ' || text[i-1] == '\t' {
			return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
		}
	}
	return strings.TrimSpace(text), ""
}
