// SPDX-License-Identifier: MIT

// Command gencatalog snapshots package metadata into a catalog file for
// index.catalog, so audits can run without reaching a network index.
// With -index it resolves every package against the live index; without
// it the catalog is assembled from the manifests alone (floors become
// versions, annotations become licenses, requires stay empty).
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/manifest"
)

const header = "# Generated by cmd/gencatalog. Review before committing.\n"

type catalogDoc struct {
	Packages []catalogPkg `yaml:"packages"`
}

type catalogPkg struct {
	Name     string   `yaml:"name"`
	Version  string   `yaml:"version,omitempty"`
	License  string   `yaml:"license,omitempty"`
	Requires []string `yaml:"requires,omitempty"`
}

func main() {
	var (
		out      = flag.String("o", "catalog.yaml", "output catalog path")
		indexURL = flag.String("index", "", "resolve packages against this index instead of manifest data")
		check    = flag.Bool("check", false, "check mode: do not modify, fail on drift")
	)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"requirements.txt"}
	}

	var provider index.Provider
	if *indexURL != "" {
		provider = index.NewClient(*indexURL, index.ClientOptions{})
	}

	doc, err := build(context.Background(), paths, provider)
	must(err)

	data, err := render(doc)
	must(err)

	if *check {
		existing, err := os.ReadFile(*out)
		if err != nil {
			fail(fmt.Sprintf("catalog missing: %s (run generator without -check)", *out))
		}
		if !bytes.Equal(bytes.TrimSpace(existing), bytes.TrimSpace(data)) {
			fail(fmt.Sprintf("catalog drift: %s (run generator without -check and commit)", *out))
		}
	} else {
		must(os.WriteFile(*out, data, 0o644))
		// Round-trip through the loader so a catalog this tool wrote is
		// always one the daemon accepts.
		if _, err := index.LoadCatalog(*out); err != nil {
			fail(fmt.Sprintf("generated catalog does not load: %v", err))
		}
	}

	mode := "write"
	if *check {
		mode = "check"
	}
	fmt.Printf("OK: %d packages processed. mode=%s\n", len(doc.Packages), mode)
}

// build collects every declared and documented package across the
// manifests. The first occurrence of a name wins.
func build(ctx context.Context, paths []string, provider index.Provider) (*catalogDoc, error) {
	seen := make(map[string]catalogPkg)
	for _, path := range paths {
		m, err := manifest.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		reqs := append(m.Declared(), m.DocumentedIndirect()...)
		for _, req := range reqs {
			if _, ok := seen[req.Canonical]; ok {
				continue
			}
			entry, err := resolve(ctx, req, provider)
			if err != nil {
				return nil, err
			}
			seen[req.Canonical] = entry
		}
	}

	doc := &catalogDoc{Packages: make([]catalogPkg, 0, len(seen))}
	for _, entry := range seen {
		doc.Packages = append(doc.Packages, entry)
	}
	sort.Slice(doc.Packages, func(i, j int) bool {
		return doc.Packages[i].Name < doc.Packages[j].Name
	})
	return doc, nil
}

func resolve(ctx context.Context, req manifest.Requirement, provider index.Provider) (catalogPkg, error) {
	entry := catalogPkg{Name: req.Canonical}

	if provider != nil {
		p, err := provider.Project(ctx, req.Canonical)
		switch {
		case err == nil:
			entry.Version = p.Version
			entry.License = p.License
			entry.Requires = p.Requires
			return entry, nil
		case errors.Is(err, index.ErrNotFound):
			// Not on the index; fall back to manifest data.
		default:
			return entry, fmt.Errorf("resolve %s: %w", req.Canonical, err)
		}
	}

	if floor, ok := req.Floor(); ok {
		entry.Version = floor.String()
	}
	entry.License = req.License
	return entry, nil
}

func render(doc *catalogDoc) ([]byte, error) {
	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(header), body...), nil
}

func must(err error) {
	if err != nil {
		fail(err.Error())
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "FAIL:", msg)
	os.Exit(1)
}
