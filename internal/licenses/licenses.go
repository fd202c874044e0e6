// SPDX-License-Identifier: MIT

// Package licenses normalises the free-text license labels found in
// manifest comments to SPDX identifiers and aggregates them into
// per-manifest reports.
package licenses

import "strings"

// Identification is the result of interpreting a license label.
type Identification struct {
	Label string `json:"label"`
	SPDX  string `json:"spdx,omitempty"`
	Known bool   `json:"known"`
}

// spdxByLabel maps normalised label forms to SPDX identifiers. Keys are
// lower case with separators collapsed to single spaces and the words
// "the", "license(s)" and "software" dropped.
var spdxByLabel = map[string]string{
	"mit":   "MIT",
	"expat": "MIT",
	"x11":   "X11",

	"apache":     "Apache-2.0",
	"apache 2":   "Apache-2.0",
	"apache 2.0": "Apache-2.0",
	"asl":        "Apache-2.0",
	"asl 2":      "Apache-2.0",
	"asl 2.0":    "Apache-2.0",

	"bsd":          "BSD-3-Clause",
	"new bsd":      "BSD-3-Clause",
	"revised bsd":  "BSD-3-Clause",
	"modified bsd": "BSD-3-Clause",
	"bsd 3 clause": "BSD-3-Clause",
	"3 clause bsd": "BSD-3-Clause",

	"simplified bsd": "BSD-2-Clause",
	"bsd 2 clause":   "BSD-2-Clause",
	"2 clause bsd":   "BSD-2-Clause",
	"freebsd":        "BSD-2-Clause",

	"mpl":                "MPL-2.0",
	"mpl 2":              "MPL-2.0",
	"mpl 2.0":            "MPL-2.0",
	"mozilla public 2.0": "MPL-2.0",

	"lgpl":     "LGPL-2.1-or-later",
	"lgpl 2":   "LGPL-2.1-or-later",
	"lgpl 2.1": "LGPL-2.1-or-later",
	"lgplv2":   "LGPL-2.1-or-later",
	"lgplv2.1": "LGPL-2.1-or-later",
	"lgpl 3":   "LGPL-3.0-or-later",
	"lgpl 3.0": "LGPL-3.0-or-later",
	"lgplv3":   "LGPL-3.0-or-later",

	"gpl":     "GPL-2.0-or-later",
	"gpl 2":   "GPL-2.0-or-later",
	"gpl 2.0": "GPL-2.0-or-later",
	"gplv2":   "GPL-2.0-or-later",
	"gpl 3":   "GPL-3.0-or-later",
	"gpl 3.0": "GPL-3.0-or-later",
	"gplv3":   "GPL-3.0-or-later",

	"agpl":     "AGPL-3.0-or-later",
	"agpl 3":   "AGPL-3.0-or-later",
	"agpl 3.0": "AGPL-3.0-or-later",
	"agplv3":   "AGPL-3.0-or-later",

	"psf":               "PSF-2.0",
	"psf 2.0":           "PSF-2.0",
	"python foundation": "PSF-2.0",

	"isc":       "ISC",
	"zlib":      "Zlib",
	"unlicense": "Unlicense",
	"wtfpl":     "WTFPL",
	"cc0":       "CC0-1.0",
	"cc0 1.0":   "CC0-1.0",
}

// Identify interprets a free-text license label.
func Identify(label string) Identification {
	id := Identification{Label: strings.TrimSpace(label)}
	if id.Label == "" {
		return id
	}
	if spdx, ok := spdxByLabel[normalizeLabel(id.Label)]; ok {
		id.SPDX = spdx
		id.Known = true
	}
	return id
}

func normalizeLabel(label string) string {
	lc := strings.ToLower(label)
	lc = strings.ReplaceAll(lc, "licence", "license")
	lc = strings.ReplaceAll(lc, "-", " ")
	lc = strings.ReplaceAll(lc, "_", " ")

	fields := strings.Fields(lc)
	kept := fields[:0]
	for _, f := range fields {
		switch f {
		case "the", "license", "licenses", "software":
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
