// SPDX-License-Identifier: MIT

package manifest

import (
	"bytes"
	"io"
	"strings"
)

// Render reproduces the manifest byte for byte, line order untouched.
func Render(m *Manifest) []byte {
	var buf bytes.Buffer
	for i, line := range m.Lines {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line.Raw)
	}
	if m.TrailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Write renders the manifest verbatim to w.
func Write(w io.Writer, m *Manifest) error {
	_, err := w.Write(Render(m))
	return err
}

// Canonical rewrites declaration and documentation lines in canonical
// form: normalised specifier spelling, single spaces around the license
// comment. Prose comments, section headers, blank lines and line order
// are preserved; malformed lines are kept as written so nothing is lost.
func Canonical(m *Manifest) []byte {
	var buf bytes.Buffer
	for _, line := range m.Lines {
		switch {
		case line.Kind == KindRequirement && line.Req != nil:
			buf.WriteString(formatRequirement(line.Req))
		case line.Kind == KindIndirect && line.Req != nil:
			buf.WriteString("# ")
			buf.WriteString(formatRequirement(line.Req))
		default:
			buf.WriteString(strings.TrimSuffix(line.Raw, "\r"))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func formatRequirement(r *Requirement) string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	switch {
	case len(r.Constraint) > 0:
		b.WriteString(r.Constraint.String())
	case r.RawConstraint != "":
		b.WriteString(r.RawConstraint)
	}
	if r.Marker != "" {
		b.WriteString(" ; ")
		b.WriteString(r.Marker)
	}
	if r.License != "" {
		b.WriteString(" # ")
		b.WriteString(r.License)
	}
	return b.String()
}
