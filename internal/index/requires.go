// SPDX-License-Identifier: MIT

package index

import (
	"regexp"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// Leading PEP 508 name; everything after it (extras, constraints,
// environment markers) is irrelevant for closure membership.
var distNamePattern = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)

// ParseRequiresDist extracts canonical package names from requires_dist
// entries. Markers and extras are ignored: the closure answers "could a
// direct dependency pull this in", not "is it installed right here".
func ParseRequiresDist(entries []string) []string {
	var names []string
	seen := map[string]bool{}
	for _, entry := range entries {
		m := distNamePattern.FindStringSubmatch(entry)
		if m == nil {
			continue
		}
		name := manifest.CanonicalName(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
