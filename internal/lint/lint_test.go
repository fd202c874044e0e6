// SPDX-License-Identifier: MIT

package lint

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

func parseManifest(t *testing.T, content string) *manifest.Manifest {
	t.Helper()
	m := manifest.ParseBytes([]byte(content))
	m.Path = "reqs.txt"
	return m
}

func testProvider() index.Provider {
	return index.NewCatalog([]index.Project{
		{Name: "requests", Version: "2.32.3", License: "Apache-2.0",
			Requires: []string{"certifi", "charset-normalizer", "idna", "urllib3"}},
		{Name: "certifi", Version: "2024.2.2", License: "MPL-2.0"},
		{Name: "charset-normalizer", Version: "3.3.2", License: "MIT"},
		{Name: "idna", Version: "3.7", License: "BSD-3-Clause"},
		{Name: "urllib3", Version: "2.2.1", License: "MIT"},
		{Name: "six", Version: "1.16.0", License: "MIT"},
		{Name: "decorator", Version: "5.1.1", License: "BSD-3-Clause"},
	})
}

func TestEngineRun(t *testing.T) {
	m := parseManifest(t, `# Requirements for the message service.
#
# Direct dependencies:
requests>=2.32.2 # Apache-2.0
requests>=2.20.0 # Apache-2.0
six # MIT
#
# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
# docopt>=0.6.2 # MIT
`)

	engine := New(nil)
	res, err := engine.Run(context.Background(), &Target{Manifest: m, Provider: testProvider()})
	require.NoError(t, err)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, RuleConflict, res.Findings[0].Rule)
	assert.Equal(t, 5, res.Findings[0].Line)
	assert.Equal(t, RuleIndirectCoverage, res.Findings[1].Rule)
	assert.Equal(t, 10, res.Findings[1].Line)
	assert.Equal(t, "docopt", res.Findings[1].Package)

	assert.Equal(t, 2, res.Errors)
	assert.Equal(t, 0, res.Warnings)
	assert.True(t, res.HasErrors())
	assert.Equal(t, "reqs.txt", res.Manifest)
}

func TestEngineCleanManifest(t *testing.T) {
	m := parseManifest(t, `# Direct dependencies:
certifi>=2019.9.11 # MPL-2.0
requests>=2.32.2 # Apache-2.0
six>=1.16.0 # MIT
#
# Indirect dependencies:
# urllib3>=1.26.19 # MIT
`)

	engine := New(nil)
	res, err := engine.Run(context.Background(), &Target{Manifest: m, Provider: testProvider()})
	require.NoError(t, err)
	assert.Empty(t, res.Findings)
	assert.False(t, res.HasErrors())
}

func TestEngineOverrides(t *testing.T) {
	m := parseManifest(t, "six>=1.16.0 # MIT\nsix>=1.16.0 # MIT\n")

	t.Run("default warns", func(t *testing.T) {
		res, err := New(nil).Run(context.Background(), &Target{Manifest: m})
		require.NoError(t, err)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, RuleDuplicate, res.Findings[0].Rule)
		assert.Equal(t, SeverityWarning, res.Findings[0].Severity)
		assert.Equal(t, 1, res.Warnings)
	})

	t.Run("severity raised to error", func(t *testing.T) {
		sev := SeverityError
		engine := New(map[string]Override{RuleDuplicate: {Severity: &sev}})
		res, err := engine.Run(context.Background(), &Target{Manifest: m})
		require.NoError(t, err)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, 1, res.Errors)
		assert.True(t, res.HasErrors())
	})

	t.Run("disabled", func(t *testing.T) {
		engine := New(map[string]Override{RuleDuplicate: {Disabled: true}})
		res, err := engine.Run(context.Background(), &Target{Manifest: m})
		require.NoError(t, err)
		assert.Empty(t, res.Findings)
	})
}

func TestEngineContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := parseManifest(t, "six>=1.16.0 # MIT\n")
	_, err := New(nil).Run(ctx, &Target{Manifest: m})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineRulesExposed(t *testing.T) {
	ids := map[string]bool{}
	for _, rule := range New(nil).Rules() {
		ids[rule.ID] = true
	}
	for _, id := range []string{
		RuleSyntax, RuleSpecifierValid, RuleConflict, RuleDuplicate,
		RuleLicense, RulePinCoverage, RuleInstallOrder, RuleIndirectCoverage,
		RuleLicenseMismatch,
	} {
		assert.True(t, ids[id], "missing rule %s", id)
	}
}

func TestSeverityJSON(t *testing.T) {
	data, err := json.Marshal(Finding{Rule: RuleSyntax, Severity: SeverityWarning, Message: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"warning"`)

	var f Finding
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, SeverityWarning, f.Severity)

	var bad Finding
	assert.Error(t, json.Unmarshal([]byte(`{"severity":"loud"}`), &bad))
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{in: "error", want: SeverityError},
		{in: "WARNING", want: SeverityWarning},
		{in: "warn", want: SeverityWarning},
		{in: " info ", want: SeverityInfo},
		{in: "fatal", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
