// SPDX-License-Identifier: MIT

package licenses

import (
	"sort"
	"time"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// Entry records the license situation of one manifest package.
type Entry struct {
	Package string `json:"package"`
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	SPDX    string `json:"spdx,omitempty"`
	Known   bool   `json:"known"`
	Section string `json:"section"`
	Line    int    `json:"line"`
}

// Report aggregates the license annotations of a whole manifest.
type Report struct {
	Manifest    string         `json:"manifest,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []Entry        `json:"entries"`
	Totals      map[string]int `json:"totals"`
	Unknown     int            `json:"unknown"`
	Unlabelled  int            `json:"unlabelled"`
}

// Build walks declared and documented packages and aggregates their
// license labels. Totals are keyed by SPDX identifier.
func Build(m *manifest.Manifest, now time.Time) *Report {
	r := &Report{
		Manifest:    m.Path,
		GeneratedAt: now.UTC(),
		Entries:     []Entry{},
		Totals:      map[string]int{},
	}

	add := func(req manifest.Requirement, section string) {
		entry := Entry{
			Package: req.Canonical,
			Name:    req.Name,
			Label:   req.License,
			Section: section,
			Line:    req.Line,
		}
		if req.License == "" {
			r.Unlabelled++
		} else {
			id := Identify(req.License)
			entry.SPDX = id.SPDX
			entry.Known = id.Known
			if id.Known {
				r.Totals[id.SPDX]++
			} else {
				r.Unknown++
			}
		}
		r.Entries = append(r.Entries, entry)
	}

	for _, req := range m.Declared() {
		add(req, manifest.SectionDirect.String())
	}
	for _, req := range m.DocumentedIndirect() {
		add(req, manifest.SectionIndirect.String())
	}

	sort.SliceStable(r.Entries, func(i, j int) bool {
		return r.Entries[i].Line < r.Entries[j].Line
	})

	return r
}
