// SPDX-License-Identifier: MIT

package lint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqwatch/reqwatch/internal/index"
)

type failingProvider struct{ err error }

func (f *failingProvider) Project(context.Context, string) (*index.Project, error) {
	return nil, f.err
}

func (f *failingProvider) Requires(context.Context, string) ([]string, error) {
	return nil, f.err
}

func TestCheckIndirectCoverage(t *testing.T) {
	t.Run("covered", func(t *testing.T) {
		m := parseManifest(t, `# Direct dependencies:
requests>=2.32.2 # Apache-2.0
# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
`)
		findings, err := checkIndirectCoverage(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityError)
		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("not covered", func(t *testing.T) {
		m := parseManifest(t, `# Direct dependencies:
requests>=2.32.2 # Apache-2.0
six>=1.16.0 # MIT
# Indirect dependencies:
# docopt>=0.6.2 # MIT
`)
		findings, err := checkIndirectCoverage(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityError)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, 5, findings[0].Line)
		assert.Equal(t, SeverityError, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "not required by any dependency declared above it")
	})

	t.Run("unverifiable when a root is unknown", func(t *testing.T) {
		m := parseManifest(t, `# Direct dependencies:
stomp-py>=8.1.1 # Apache
# Indirect dependencies:
# websocket-client>=1.0 # Apache
`)
		findings, err := checkIndirectCoverage(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityError)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "cannot verify websocket-client")
		assert.Contains(t, findings[0].Message, "stomp-py")
	})

	t.Run("documented before any declaration", func(t *testing.T) {
		m := parseManifest(t, `# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
requests>=2.32.2 # Apache-2.0
`)
		findings, err := checkIndirectCoverage(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityError)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, 2, findings[0].Line)
		assert.Equal(t, SeverityError, findings[0].Severity)
	})

	t.Run("no provider", func(t *testing.T) {
		m := parseManifest(t, "# Indirect dependencies:\n# certifi>=2019.9.11 # MPL 2.0\n")
		findings, err := checkIndirectCoverage(context.Background(), &Target{Manifest: m}, SeverityError)
		require.NoError(t, err)
		assert.Empty(t, findings)
	})
}

func TestCheckInstallOrder(t *testing.T) {
	t.Run("requirement after dependent", func(t *testing.T) {
		m := parseManifest(t, `requests>=2.32.2 # Apache-2.0
certifi>=2019.9.11 # MPL-2.0
`)
		findings, err := checkInstallOrder(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityWarning)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, 2, findings[0].Line)
		assert.Equal(t, "certifi", findings[0].Package)
		assert.Contains(t, findings[0].Message, "required by requests (line 1)")
	})

	t.Run("requirement before dependent", func(t *testing.T) {
		m := parseManifest(t, `certifi>=2019.9.11 # MPL-2.0
requests>=2.32.2 # Apache-2.0
`)
		findings, err := checkInstallOrder(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityWarning)
		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("section shape", func(t *testing.T) {
		m := parseManifest(t, `# Indirect dependencies:
six>=1.16.0 # MIT
# Direct dependencies:
requests>=2.32.2 # Apache-2.0
certifi>=2019.9.11 # MPL-2.0
`)
		findings, err := checkInstallOrder(context.Background(),
			&Target{Manifest: m, Provider: testProvider()}, SeverityWarning)
		require.NoError(t, err)
		require.Len(t, findings, 3)
		assert.Contains(t, findings[0].Message, "declared inside the indirect section")
		assert.Equal(t, 2, findings[0].Line)
		assert.Contains(t, findings[1].Message, "opens after the indirect section")
		assert.Equal(t, 3, findings[1].Line)
		assert.Equal(t, 5, findings[2].Line)
		assert.Equal(t, "certifi", findings[2].Package)
	})
}

func TestCheckRegistryLicenses(t *testing.T) {
	m := parseManifest(t, `requests>=2.32.2 # MIT
six>=1.16.0 # MIT
decorator>=4.0.11 # new BSD
ghost-package>=1.0 # MIT
`)

	findings, err := checkRegistryLicenses(context.Background(),
		&Target{Manifest: m, Provider: testProvider()}, SeverityInfo)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	assert.Equal(t, 1, findings[0].Line)
	assert.Equal(t, "requests", findings[0].Package)
	assert.Equal(t, SeverityInfo, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "manifest says MIT but the registry reports Apache-2.0")
}

func TestIndexDegradation(t *testing.T) {
	provider := &failingProvider{err: index.ErrUnavailable}

	t.Run("indirect coverage degrades to a warning", func(t *testing.T) {
		m := parseManifest(t, `requests>=2.32.2 # Apache-2.0
# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
`)
		findings, err := checkIndirectCoverage(context.Background(),
			&Target{Manifest: m, Provider: provider}, SeverityError)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
		assert.Contains(t, findings[0].Message, "index lookup failed")
	})

	t.Run("install order degrades to a warning", func(t *testing.T) {
		m := parseManifest(t, "requests>=2.32.2 # Apache-2.0\n")
		findings, err := checkInstallOrder(context.Background(),
			&Target{Manifest: m, Provider: provider}, SeverityWarning)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Message, "index lookup failed")
	})
}

func TestResolverMemoises(t *testing.T) {
	counting := &countingProvider{inner: testProvider()}
	m := parseManifest(t, `requests>=2.32.2 # Apache-2.0
# Indirect dependencies:
# certifi>=2019.9.11 # MPL 2.0
# urllib3>=1.26.19 # MIT
`)

	target := &Target{Manifest: m, Provider: counting}
	res, err := New(nil).Run(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, res.HasErrors())

	// One lookup per distinct package across all provider-backed rules.
	for name, hits := range counting.hits {
		assert.Equal(t, 1, hits, "package %s resolved more than once", name)
	}
}

type countingProvider struct {
	inner index.Provider
	hits  map[string]int
}

func (c *countingProvider) Project(ctx context.Context, name string) (*index.Project, error) {
	if c.hits == nil {
		c.hits = map[string]int{}
	}
	c.hits[name]++
	return c.inner.Project(ctx, name)
}

func (c *countingProvider) Requires(ctx context.Context, name string) ([]string, error) {
	p, err := c.Project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Requires, nil
}
