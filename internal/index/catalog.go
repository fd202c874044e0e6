// SPDX-License-Identifier: MIT

package index

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// Catalog is a static Provider backed by a YAML file. It serves audits
// that must not talk to a network index, and tests.
type Catalog struct {
	projects map[string]*Project
}

type catalogFile struct {
	Packages []catalogEntry `yaml:"packages"`
}

type catalogEntry struct {
	Name     string   `yaml:"name"`
	Version  string   `yaml:"version"`
	License  string   `yaml:"license"`
	Requires []string `yaml:"requires"`
}

// LoadCatalog reads a catalog file of the form:
//
//	packages:
//	  - name: requests
//	    version: "2.32.3"
//	    license: Apache-2.0
//	    requires: [certifi, charset-normalizer, idna, urllib3]
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from validated config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	projects := make([]Project, 0, len(file.Packages))
	for _, entry := range file.Packages {
		if entry.Name == "" {
			return nil, fmt.Errorf("parse catalog: package without name")
		}
		projects = append(projects, Project{
			Name:     entry.Name,
			Version:  entry.Version,
			License:  entry.License,
			Requires: entry.Requires,
		})
	}
	return NewCatalog(projects), nil
}

// NewCatalog builds a catalog from in-memory projects. Names and
// requirement lists are canonicalised.
func NewCatalog(projects []Project) *Catalog {
	c := &Catalog{projects: make(map[string]*Project, len(projects))}
	for _, p := range projects {
		entry := &Project{
			Name:    manifest.CanonicalName(p.Name),
			Version: p.Version,
			License: p.License,
		}
		for _, req := range p.Requires {
			if canonical := manifest.CanonicalName(req); canonical != "" {
				entry.Requires = append(entry.Requires, canonical)
			}
		}
		c.projects[entry.Name] = entry
	}
	return c
}

// Project implements Provider.
func (c *Catalog) Project(_ context.Context, name string) (*Project, error) {
	p, ok := c.projects[manifest.CanonicalName(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	clone := *p
	return &clone, nil
}

// Requires implements Provider.
func (c *Catalog) Requires(ctx context.Context, name string) ([]string, error) {
	p, err := c.Project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Requires, nil
}

// Len returns the number of catalogued packages.
func (c *Catalog) Len() int {
	return len(c.projects)
}
