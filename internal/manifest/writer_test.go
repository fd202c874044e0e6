// SPDX-License-Identifier: MIT

package manifest

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"full sample", sampleManifest},
		{"no trailing newline", "six>=1.16.0 # MIT"},
		{"empty", ""},
		{"only newline", "\n"},
		{"blank lines", "\n\n\n"},
		{"malformed preserved", "???\nsix>=1.16.0 # MIT\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ParseBytes([]byte(tt.input))
			if got := Render(m); string(got) != tt.input {
				t.Errorf("Render() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	m := ParseBytes([]byte(sampleManifest))
	var buf bytes.Buffer
	if err := Write(&buf, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != sampleManifest {
		t.Error("Write output differs from source")
	}
}

func TestCanonicalFormatting(t *testing.T) {
	input := strings.Join([]string{
		"# Direct dependencies:",
		"decorator >= 4.0.11   #   new BSD",
		"requests[socks ,security]>=2.32.2#glued stays",
		"",
		"# Indirect dependencies:",
		"#   amqp (>=2.4.0)   # BSD",
	}, "\n") + "\n"

	want := strings.Join([]string{
		"# Direct dependencies:",
		"decorator>=4.0.11 # new BSD",
		"requests[socks,security]>=2.32.2#glued stays",
		"",
		"# Indirect dependencies:",
		"# amqp>=2.4.0 # BSD",
	}, "\n") + "\n"

	m := ParseBytes([]byte(input))
	if got := string(Canonical(m)); got != want {
		t.Errorf("Canonical() =\n%s\nwant:\n%s", got, want)
	}
}

func TestCanonicalKeepsMalformedVerbatim(t *testing.T) {
	input := "not a requirement line at all!\n"
	m := ParseBytes([]byte(input))
	if got := string(Canonical(m)); got != input {
		t.Errorf("Canonical() = %q, want untouched %q", got, input)
	}
}

func TestCanonicalNormalizesSpecifierSpelling(t *testing.T) {
	m := ParseBytes([]byte("pytz>=2016.10.00 # MIT\n"))
	want := "pytz>=2016.10.0 # MIT\n"
	if got := string(Canonical(m)); got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}
