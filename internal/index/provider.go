// SPDX-License-Identifier: MIT

// Package index resolves package metadata: which version a package is at,
// what it requires, and what license it declares. Providers are the JSON
// API of a package index or a static YAML catalog for air-gapped audits.
package index

import (
	"context"
	"errors"
	"sort"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// ErrNotFound reports a package the index does not know.
var ErrNotFound = errors.New("index: project not found")

// Project is the metadata of one package at its current version.
type Project struct {
	Name     string   `json:"name"`
	Version  string   `json:"version,omitempty"`
	License  string   `json:"license,omitempty"`
	Requires []string `json:"requires,omitempty"`
}

// Provider resolves package metadata by canonical name.
type Provider interface {
	// Project returns the metadata of a package. ErrNotFound is returned
	// (possibly wrapped) for unknown packages.
	Project(ctx context.Context, name string) (*Project, error)

	// Requires returns the canonical names of the package's requirements.
	Requires(ctx context.Context, name string) ([]string, error)
}

// Closure is the transitive requirement set reachable from a set of roots.
type Closure struct {
	// Members holds every package some root requires, directly or through
	// intermediate requirements. Roots themselves are only members when
	// another package requires them.
	Members map[string]bool

	// Unresolved lists packages the provider could not resolve, sorted.
	// Their requirements are unknown, so the closure may be incomplete.
	Unresolved []string
}

// TransitiveRequirements walks requirements breadth-first from the roots.
// Unresolvable packages do not fail the walk; they are recorded so callers
// can report the closure as potentially incomplete.
func TransitiveRequirements(ctx context.Context, p Provider, roots []string) (*Closure, error) {
	c := &Closure{Members: map[string]bool{}}

	seen := map[string]bool{}
	queue := make([]string, 0, len(roots))
	for _, root := range roots {
		name := manifest.CanonicalName(root)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		queue = append(queue, name)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := queue[0]
		queue = queue[1:]

		requires, err := p.Requires(ctx, name)
		if errors.Is(err, ErrNotFound) {
			c.Unresolved = append(c.Unresolved, name)
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, dep := range requires {
			canonical := manifest.CanonicalName(dep)
			if canonical == "" {
				continue
			}
			c.Members[canonical] = true
			if !seen[canonical] {
				seen[canonical] = true
				queue = append(queue, canonical)
			}
		}
	}

	sort.Strings(c.Unresolved)
	return c, nil
}
