// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reqwatch/reqwatch/internal/index"
)

const soloManifest = `# Direct dependencies
requests>=2.31.0 # Apache-2.0
flask>=3.0.0 # BSD-3-Clause

# Indirect dependencies
# certifi>=2024.2.2 # MPL-2.0
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requirements.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestBuildOffline(t *testing.T) {
	path := writeManifest(t, soloManifest)

	doc, err := build(context.Background(), []string{path}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Packages) != 3 {
		t.Fatalf("packages = %d, want 3", len(doc.Packages))
	}
	// Sorted by name.
	names := []string{doc.Packages[0].Name, doc.Packages[1].Name, doc.Packages[2].Name}
	want := []string{"certifi", "flask", "requests"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	requests := doc.Packages[2]
	if requests.Version != "2.31.0" || requests.License != "Apache-2.0" {
		t.Errorf("requests = %+v, want floor version and annotation", requests)
	}
	if len(requests.Requires) != 0 {
		t.Errorf("offline requires = %v, want empty", requests.Requires)
	}
}

func TestBuildAgainstIndex(t *testing.T) {
	path := writeManifest(t, soloManifest)

	mock := index.NewMockServer()
	defer mock.Close()
	provider := index.NewClient(mock.URL, index.ClientOptions{})

	doc, err := build(context.Background(), []string{path}, provider)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	byName := map[string]catalogPkg{}
	for _, p := range doc.Packages {
		byName[p.Name] = p
	}

	// requests exists on the index: snapshot its live metadata.
	requests := byName["requests"]
	if requests.Version != "2.32.3" || len(requests.Requires) == 0 {
		t.Errorf("requests = %+v, want index metadata", requests)
	}
	// flask is unknown to the index: keep the manifest view.
	flask := byName["flask"]
	if flask.Version != "3.0.0" || flask.License != "BSD-3-Clause" {
		t.Errorf("flask = %+v, want manifest fallback", flask)
	}
}

func TestRenderLoadsAsCatalog(t *testing.T) {
	path := writeManifest(t, soloManifest)

	doc, err := build(context.Background(), []string{path}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	out := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(out, data, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := index.LoadCatalog(out)
	if err != nil {
		t.Fatalf("generated catalog does not load: %v", err)
	}
	if catalog.Len() != 3 {
		t.Errorf("catalog len = %d, want 3", catalog.Len())
	}
	p, err := catalog.Project(context.Background(), "requests")
	if err != nil {
		t.Fatalf("lookup requests: %v", err)
	}
	if p.Version != "2.31.0" {
		t.Errorf("requests version = %q", p.Version)
	}
}
