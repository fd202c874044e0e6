// SPDX-License-Identifier: MIT

package index

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/reqwatch/reqwatch/internal/manifest"
)

// MockServer is a configurable package index for tests. It speaks the
// same JSON API the Client consumes and supports failure injection.
type MockServer struct {
	*httptest.Server
	mu       sync.Mutex
	projects map[string]Project
	rawDist  map[string][]string // overrides the rendered requires_dist
	failures map[string]int      // name -> number of 500s before success
	delay    time.Duration
	hits     map[string]int
}

// NewMockServer starts a mock index seeded with default data.
func NewMockServer() *MockServer {
	mock := &MockServer{
		projects: make(map[string]Project),
		rawDist:  make(map[string][]string),
		failures: make(map[string]int),
		hits:     make(map[string]int),
	}
	mock.setDefaultDataLocked()

	mux := http.NewServeMux()
	mux.HandleFunc("/pypi/", mock.handleProject)

	mock.Server = httptest.NewServer(mux)
	return mock
}

// setDefaultDataLocked seeds a small, realistic dependency graph.
func (m *MockServer) setDefaultDataLocked() {
	defaults := []Project{
		{Name: "decorator", Version: "5.1.1", License: "new BSD"},
		{Name: "pytz", Version: "2024.1", License: "MIT"},
		{Name: "six", Version: "1.16.0", License: "MIT"},
		{Name: "requests", Version: "2.32.3", License: "Apache-2.0",
			Requires: []string{"certifi", "charset-normalizer", "idna", "urllib3"}},
		{Name: "stomp.py", Version: "8.1.2", License: "Apache-2.0",
			Requires: []string{"docopt", "websocket-client"}},
		{Name: "certifi", Version: "2024.2.2", License: "MPL-2.0"},
		{Name: "charset-normalizer", Version: "3.3.2", License: "MIT"},
		{Name: "idna", Version: "3.7", License: "BSD-3-Clause"},
		{Name: "urllib3", Version: "2.2.1", License: "MIT"},
		{Name: "docopt", Version: "0.6.2", License: "MIT"},
		{Name: "websocket-client", Version: "1.7.0", License: "Apache-2.0"},
	}
	for _, p := range defaults {
		m.projects[manifest.CanonicalName(p.Name)] = p
	}
}

// AddProject registers or replaces a project.
func (m *MockServer) AddProject(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[manifest.CanonicalName(p.Name)] = p
}

// SetRequiresDist overrides the rendered requires_dist entries for a
// package, for exercising marker and extras parsing.
func (m *MockServer) SetRequiresDist(name string, entries []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawDist[manifest.CanonicalName(name)] = entries
}

// SetFailures makes the next count lookups of name fail with HTTP 500.
func (m *MockServer) SetFailures(name string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[manifest.CanonicalName(name)] = count
}

// SetDelay delays every response, for timeout tests.
func (m *MockServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Hits returns how often name was requested.
func (m *MockServer) Hits(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[manifest.CanonicalName(name)]
}

// Reset restores the default data and clears failure injection.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = make(map[string]Project)
	m.rawDist = make(map[string][]string)
	m.failures = make(map[string]int)
	m.hits = make(map[string]int)
	m.delay = 0
	m.setDefaultDataLocked()
}

func (m *MockServer) handleProject(w http.ResponseWriter, r *http.Request) {
	name, ok := projectNameFromPath(r.URL.Path)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	m.mu.Lock()
	m.hits[name]++
	delay := m.delay
	if remaining, exists := m.failures[name]; exists && remaining > 0 {
		m.failures[name] = remaining - 1
		m.mu.Unlock()
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	project, exists := m.projects[name]
	rawDist := m.rawDist[name]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !exists {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	dist := rawDist
	if dist == nil {
		dist = make([]string, 0, len(project.Requires))
		dist = append(dist, project.Requires...)
	}

	payload := map[string]interface{}{
		"info": map[string]interface{}{
			"name":          project.Name,
			"version":       project.Version,
			"license":       project.License,
			"classifiers":   []string{},
			"requires_dist": dist,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// projectNameFromPath extracts {name} from /pypi/{name}/json.
func projectNameFromPath(path string) (string, bool) {
	rest, found := strings.CutPrefix(path, "/pypi/")
	if !found {
		return "", false
	}
	name, found := strings.CutSuffix(rest, "/json")
	if !found || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return manifest.CanonicalName(name), true
}
