// SPDX-License-Identifier: MIT

package jobs

import (
	"crypto/sha1"
	"fmt"
	"path/filepath"
	"strings"
)

// manifestSlug turns a manifest path into a filesystem-safe report stem
// derived from its base name: "deps/requirements-dev.txt" becomes
// "requirements-dev".
func manifestSlug(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	if slug == "" {
		slug = "manifest"
	}
	return slug
}

// reportStems maps each manifest path to a unique report file stem.
// Distinct paths sharing a base name get a short hash suffix so their
// reports do not overwrite each other in the reports directory.
func reportStems(paths []string) map[string]string {
	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[manifestSlug(p)]++
	}

	stems := make(map[string]string, len(paths))
	for _, p := range paths {
		slug := manifestSlug(p)
		if counts[slug] > 1 {
			sum := sha1.Sum([]byte(p))
			slug = fmt.Sprintf("%s-%x", slug, sum[:3])
		}
		stems[p] = slug
	}
	return stems
}
