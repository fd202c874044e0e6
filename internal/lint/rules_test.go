// SPDX-License-Identifier: MIT

package lint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSyntax(t *testing.T) {
	m := parseManifest(t, "???\nrequests>=2.32.2 # MIT\n=broken\n")

	findings, err := checkSyntax(context.Background(), &Target{Manifest: m}, SeverityError)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, 1, findings[0].Line)
	assert.Equal(t, 3, findings[1].Line)
	for _, f := range findings {
		assert.Equal(t, RuleSyntax, f.Rule)
		assert.Equal(t, SeverityError, f.Severity)
	}
}

func TestCheckSpecifiers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		message string
	}{
		{
			name:    "valid floor",
			content: "requests>=2.32.2 # MIT\n",
			want:    0,
		},
		{
			name:    "bare name has no constraint to check",
			content: "six # MIT\n",
			want:    0,
		},
		{
			name:    "invalid version in constraint",
			content: "pytz>=bad..version # MIT\n",
			want:    1,
			message: "invalid constraint",
		},
		{
			name:    "upper bound only",
			content: "six<2 # MIT\n",
			want:    1,
			message: "no minimum-version floor",
		},
		{
			name:    "exclusion only",
			content: "click!=8.1.0 # BSD-3-Clause\n",
			want:    1,
			message: "no minimum-version floor",
		},
		{
			name:    "documented indirect with invalid constraint",
			content: "# Indirect dependencies:\n# amqp>=bad..version # BSD\n",
			want:    1,
			message: "invalid constraint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parseManifest(t, tt.content)
			findings, err := checkSpecifiers(context.Background(), &Target{Manifest: m}, SeverityError)
			require.NoError(t, err)
			require.Len(t, findings, tt.want)
			if tt.want > 0 {
				assert.Contains(t, findings[0].Message, tt.message)
			}
		})
	}
}

func TestCheckConflicts(t *testing.T) {
	m := parseManifest(t, `requests>=2.32.2 # Apache-2.0
requests>=2.20.0 # Apache-2.0
six>=1.16.0 # MIT
six >= 1.16.0   # MIT
`)

	findings, err := checkConflicts(context.Background(), &Target{Manifest: m}, SeverityError)
	require.NoError(t, err)

	// Respelled but identical constraints are not a conflict.
	require.Len(t, findings, 1)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "requests", findings[0].Package)
	assert.Contains(t, findings[0].Message, "conflicts with")
	assert.Contains(t, findings[0].Message, "line 1")
}

func TestCheckDuplicates(t *testing.T) {
	m := parseManifest(t, `# Direct dependencies:
requests>=2.32.2 # Apache-2.0
requests >= 2.32.2   # Apache-2.0
# Indirect dependencies:
# requests>=2.32.2 # Apache-2.0
`)

	findings, err := checkDuplicates(context.Background(), &Target{Manifest: m}, SeverityWarning)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, 3, findings[0].Line)
	assert.Contains(t, findings[0].Message, "already declared on line 2")
	assert.Equal(t, 5, findings[1].Line)
	assert.Contains(t, findings[1].Message, "also documented as indirect")
}

func TestCheckLicenses(t *testing.T) {
	m := parseManifest(t, `requests>=2.32.2
six>=1.16.0 # Custom EULA
pytz>=2016.10 # MIT
# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
`)

	findings, err := checkLicenses(context.Background(), &Target{Manifest: m}, SeverityWarning)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, 1, findings[0].Line)
	assert.Contains(t, findings[0].Message, "no license comment")
	assert.Equal(t, 2, findings[1].Line)
	assert.Contains(t, findings[1].Message, `unrecognised license "Custom EULA"`)
}

func TestCheckPins(t *testing.T) {
	m := parseManifest(t, `requests>=2.32.2 # Apache-2.0
six>=1.16.0 # MIT
pytz>=2016.10 # MIT
# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
`)
	pins := parseManifest(t, `requests==2.32.3
six==1.15.0
certifi==2024.2.2
`)
	pins.Path = "pins.txt"

	findings, err := checkPins(context.Background(), &Target{Manifest: m, Pins: pins}, SeverityError)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "six", findings[0].Package)
	assert.Contains(t, findings[0].Message, "pin six==1.15.0 does not satisfy >=1.16.0")

	assert.Equal(t, 3, findings[1].Line)
	assert.Equal(t, "pytz", findings[1].Package)
	assert.Contains(t, findings[1].Message, "not pinned in pins.txt")
}

func TestCheckPinsUnversionedPin(t *testing.T) {
	m := parseManifest(t, "requests>=2.32.2 # Apache-2.0\n")
	pins := parseManifest(t, "requests\n")
	pins.Path = "pins.txt"

	findings, err := checkPins(context.Background(), &Target{Manifest: m, Pins: pins}, SeverityError)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "carries no version")
}

func TestCheckPinsWithoutPinsFile(t *testing.T) {
	m := parseManifest(t, "requests>=2.32.2 # Apache-2.0\n")
	findings, err := checkPins(context.Background(), &Target{Manifest: m}, SeverityError)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
