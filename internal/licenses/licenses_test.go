// SPDX-License-Identifier: MIT

package licenses

import (
	"testing"
	"time"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		label string
		spdx  string
		known bool
	}{
		{"MIT", "MIT", true},
		{"mit", "MIT", true},
		{"Expat", "MIT", true},
		{"new BSD", "BSD-3-Clause", true},
		{"BSD-3-Clause", "BSD-3-Clause", true},
		{"BSD 2-clause", "BSD-2-Clause", true},
		{"Apache", "Apache-2.0", true},
		{"Apache-2.0", "Apache-2.0", true},
		{"Apache License 2.0", "Apache-2.0", true},
		{"Apache Software License", "Apache-2.0", true},
		{"MPL 2.0", "MPL-2.0", true},
		{"Mozilla Public License 2.0", "MPL-2.0", true},
		{"LGPL", "LGPL-2.1-or-later", true},
		{"LGPLv3", "LGPL-3.0-or-later", true},
		{"Python Software Foundation License", "PSF-2.0", true},
		{"ISC licence", "ISC", true},
		{"CC0 1.0", "CC0-1.0", true},
		{"proprietary", "", false},
		{"see LICENSE file", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got := Identify(tt.label)
		if got.SPDX != tt.spdx || got.Known != tt.known {
			t.Errorf("Identify(%q) = {%q %v}, want {%q %v}",
				tt.label, got.SPDX, got.Known, tt.spdx, tt.known)
		}
	}
}

func TestBuildReport(t *testing.T) {
	src := `# Direct dependencies:
decorator>=4.0.11 # new BSD
pytz>=2016.10 # MIT
requests>=2.32.2
weird-pkg>=1.0 # Custom EULA

# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
`
	m := manifest.ParseBytes([]byte(src))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Build(m, now)

	if len(r.Entries) != 5 {
		t.Fatalf("Entries = %d, want 5", len(r.Entries))
	}
	if r.GeneratedAt != now {
		t.Errorf("GeneratedAt = %v, want %v", r.GeneratedAt, now)
	}
	if r.Totals["BSD-3-Clause"] != 1 || r.Totals["MIT"] != 1 || r.Totals["MPL-2.0"] != 1 {
		t.Errorf("Totals = %v", r.Totals)
	}
	if r.Unknown != 1 {
		t.Errorf("Unknown = %d, want 1 (Custom EULA)", r.Unknown)
	}
	if r.Unlabelled != 1 {
		t.Errorf("Unlabelled = %d, want 1 (requests)", r.Unlabelled)
	}

	// Entries are ordered by manifest line.
	for i := 1; i < len(r.Entries); i++ {
		if r.Entries[i-1].Line > r.Entries[i].Line {
			t.Fatalf("entries out of line order: %+v", r.Entries)
		}
	}
	last := r.Entries[len(r.Entries)-1]
	if last.Package != "certifi" || last.Section != "indirect" {
		t.Errorf("last entry = %+v, want certifi/indirect", last)
	}
}

func TestPolicyEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		spdx   string
		want   Verdict
	}{
		{"empty policy allows", Policy{}, "GPL-3.0-or-later", VerdictAllowed},
		{"deny wins", Policy{Allow: []string{"MIT"}, Deny: []string{"MIT"}}, "MIT", VerdictDenied},
		{"allowed", Policy{Allow: []string{"MIT", "Apache-2.0"}}, "Apache-2.0", VerdictAllowed},
		{"allow is case-insensitive", Policy{Allow: []string{"mit"}}, "MIT", VerdictAllowed},
		{"unlisted", Policy{Allow: []string{"MIT"}}, "BSD-3-Clause", VerdictUnlisted},
		{"denied without allow list", Policy{Deny: []string{"AGPL-3.0-or-later"}}, "AGPL-3.0-or-later", VerdictDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Evaluate(tt.spdx); got != tt.want {
				t.Errorf("Evaluate(%q) = %s, want %s", tt.spdx, got, tt.want)
			}
		})
	}
}
