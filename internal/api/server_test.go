// SPDX-License-Identifier: MIT
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/health"
	"github.com/reqwatch/reqwatch/internal/index"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/store"
)

const testToken = "test-token"

const sampleManifest = `# Direct dependencies
requests>=2.31.0 # Apache-2.0

# Indirect dependencies
# urllib3>=1.26 # MIT
`

const samplePins = `requests==2.31.0
urllib3==1.26.18
`

func testCatalog() *index.Catalog {
	return index.NewCatalog([]index.Project{
		{Name: "requests", Version: "2.31.0", License: "Apache-2.0", Requires: []string{"urllib3"}},
		{Name: "urllib3", Version: "1.26.18", License: "MIT"},
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newTestServer builds a server over a fresh temp data directory with one
// clean manifest configured.
func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	manifestPath := writeFile(t, dir, "requirements.txt", sampleManifest)
	pinsPath := writeFile(t, dir, "constraints.txt", samplePins)

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Manifests = []string{manifestPath}
	cfg.PinsFile = pinsPath
	cfg.API.Token = testToken
	cfg.Telemetry.Enabled = false

	st := store.NewMemoryStore()
	runner := jobs.NewRunner(jobs.Deps{
		Config: jobs.Config{
			DataDir:     dir,
			Manifests:   cfg.Manifests,
			PinsFile:    cfg.PinsFile,
			Parallelism: 2,
		},
		Provider: testCatalog(),
		Store:    st,
	})

	return New(&cfg, runner, st, health.NewManager("test"), "test"), &cfg
}

func doRequest(h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingToken(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s.Handler(), http.MethodGet, "/api/status", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s.Handler(), http.MethodGet, "/api/status", "wrong", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuth_XAPITokenHeader(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Token", testToken)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAuth_FailClosedWithoutToken(t *testing.T) {
	s, cfg := newTestServer(t)
	_, runner := s.snapshot()
	next := *cfg
	next.API.Token = ""
	s.ApplyConfig(&next, runner)

	w := doRequest(s.Handler(), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", w.Code)
	}
	w = doRequest(s.Handler(), http.MethodGet, "/api/status", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 with no token configured", w.Code)
	}
}

func TestAuth_ExplicitAnonymous(t *testing.T) {
	s, cfg := newTestServer(t)
	_, runner := s.snapshot()
	next := *cfg
	next.API.Token = ""
	next.API.AllowAnonymous = true
	s.ApplyConfig(&next, runner)

	w := doRequest(s.Handler(), http.MethodGet, "/api/status", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with anonymous enabled", w.Code)
	}
}

func TestStatus(t *testing.T) {
	s, cfg := newTestServer(t)
	w := doRequest(s.Handler(), http.MethodGet, "/api/status", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Service != "reqwatch" || resp.Version != "test" {
		t.Errorf("service/version = %q/%q", resp.Service, resp.Version)
	}
	if len(resp.Manifests) != 1 || resp.Manifests[0] != cfg.Manifests[0] {
		t.Errorf("manifests = %v", resp.Manifests)
	}
	if resp.Audit.Running {
		t.Error("audit reported running on a fresh server")
	}
}

func TestAudit_TriggersRun(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s.Handler(), http.MethodPost, "/api/audit", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var run jobs.RunResult
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !run.Success {
		t.Fatalf("run failed: %s", run.Err)
	}
	if run.Trigger != store.TriggerAPI {
		t.Errorf("trigger = %q, want api", run.Trigger)
	}

	runs, err := s.store.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(runs))
	}
}

// gatedProvider blocks Project lookups until the gate closes, to hold an
// audit in flight.
type gatedProvider struct {
	inner   index.Provider
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedProvider) Project(ctx context.Context, name string) (*index.Project, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.inner.Project(ctx, name)
}

func (g *gatedProvider) Requires(ctx context.Context, name string) ([]string, error) {
	p, err := g.Project(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Requires, nil
}

func TestAudit_Conflict(t *testing.T) {
	s, cfg := newTestServer(t)
	gated := &gatedProvider{
		inner:   testCatalog(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	runner := jobs.NewRunner(jobs.Deps{
		Config: jobs.Config{
			DataDir:   cfg.DataDir,
			Manifests: cfg.Manifests,
			PinsFile:  cfg.PinsFile,
		},
		Provider: gated,
		Store:    s.store,
	})
	s.ApplyConfig(cfg, runner)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = runner.Audit(context.Background(), store.TriggerSchedule)
	}()

	select {
	case <-gated.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("audit never reached the provider")
	}

	w := doRequest(s.Handler(), http.MethodPost, "/api/audit", testToken, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "conflict" {
		t.Errorf("error = %q, want conflict", body["error"])
	}

	close(gated.gate)
	<-done
}

func TestListAudits(t *testing.T) {
	s, _ := newTestServer(t)
	base := time.Now().UTC()
	for i, id := range []string{"run-a", "run-b"} {
		err := s.store.PutRun(context.Background(), &store.Run{
			ID:        id,
			Manifest:  "requirements.txt",
			Trigger:   store.TriggerSchedule,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Success:   true,
		})
		if err != nil {
			t.Fatalf("seed run: %v", err)
		}
	}

	w := doRequest(s.Handler(), http.MethodGet, "/api/audits", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var runs []*store.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-b" {
		t.Errorf("newest first violated: got %s", runs[0].ID)
	}

	w = doRequest(s.Handler(), http.MethodGet, "/api/audits?limit=1", testToken, "")
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("limited runs = %d, want 1", len(runs))
	}

	w = doRequest(s.Handler(), http.MethodGet, "/api/audits?limit=zero", testToken, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid limit: status = %d, want 400", w.Code)
	}
}

func TestGetAudit(t *testing.T) {
	s, _ := newTestServer(t)
	err := s.store.PutRun(context.Background(), &store.Run{
		ID:        "run-1",
		Manifest:  "requirements.txt",
		StartedAt: time.Now().UTC(),
		Success:   true,
	})
	if err != nil {
		t.Fatalf("seed run: %v", err)
	}

	w := doRequest(s.Handler(), http.MethodGet, "/api/audits/run-1", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var run store.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID != "run-1" {
		t.Errorf("id = %q", run.ID)
	}

	w = doRequest(s.Handler(), http.MethodGet, "/api/audits/ghost", testToken, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status = %d, want 404", w.Code)
	}
}

func TestLint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s.Handler(), http.MethodPost, "/api/lint?manifest=ci.txt", testToken, "pytest>=7.0\n")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var res struct {
		Manifest string `json:"manifest"`
		Errors   int    `json:"errors"`
		Warnings int    `json:"warnings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Manifest != "ci.txt" {
		t.Errorf("manifest = %q", res.Manifest)
	}
	// pytest is unpinned and carries no license comment.
	if res.Errors != 1 || res.Warnings != 1 {
		t.Errorf("findings = %d errors / %d warnings, want 1/1", res.Errors, res.Warnings)
	}
}

func TestLint_BodyTooLarge(t *testing.T) {
	s, cfg := newTestServer(t)
	_, runner := s.snapshot()
	next := *cfg
	next.API.MaxLintBody = 16
	s.ApplyConfig(&next, runner)

	w := doRequest(s.Handler(), http.MethodPost, "/api/lint", testToken, strings.Repeat("requests>=2.0\n", 10))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", w.Code)
	}
}

func TestManifests(t *testing.T) {
	s, cfg := newTestServer(t)

	w := doRequest(s.Handler(), http.MethodGet, "/api/manifests", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var infos []manifestInfo
	if err := json.Unmarshal(w.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("manifests = %d, want 1", len(infos))
	}
	if infos[0].Path != cfg.Manifests[0] {
		t.Errorf("path = %q", infos[0].Path)
	}
	if infos[0].Stats == nil || infos[0].Stats.Declared != 1 {
		t.Errorf("stats = %+v", infos[0].Stats)
	}
	// No audit yet, so no report links.
	if infos[0].FindingsReport != "" {
		t.Errorf("premature report link %q", infos[0].FindingsReport)
	}

	if w := doRequest(s.Handler(), http.MethodPost, "/api/audit", testToken, ""); w.Code != http.StatusOK {
		t.Fatalf("audit: status = %d", w.Code)
	}

	w = doRequest(s.Handler(), http.MethodGet, "/api/manifests", testToken, "")
	if err := json.Unmarshal(w.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(infos[0].FindingsReport, "/files/reports/") {
		t.Errorf("findings report link = %q", infos[0].FindingsReport)
	}
	if !strings.HasSuffix(infos[0].LicensesReport, ".licenses.json") {
		t.Errorf("licenses report link = %q", infos[0].LicensesReport)
	}
}

func TestManifests_BrokenManifestListed(t *testing.T) {
	s, cfg := newTestServer(t)
	_, runner := s.snapshot()
	next := *cfg
	next.Manifests = append([]string{}, cfg.Manifests...)
	next.Manifests = append(next.Manifests, filepath.Join(cfg.DataDir, "missing.txt"))
	s.ApplyConfig(&next, runner)

	w := doRequest(s.Handler(), http.MethodGet, "/api/manifests", testToken, "")
	var infos []manifestInfo
	if err := json.Unmarshal(w.Body.Bytes(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("manifests = %d, want 2", len(infos))
	}
	if infos[1].Error == "" {
		t.Error("missing manifest should carry an error")
	}
	if infos[1].Stats != nil {
		t.Error("missing manifest should have no stats")
	}
}

func TestApplyConfig_SwapsToken(t *testing.T) {
	s, cfg := newTestServer(t)
	h := s.Handler()

	_, runner := s.snapshot()
	next := *cfg
	next.API.Token = "rotated"
	s.ApplyConfig(&next, runner)

	// Existing router instance picks up the new token on the next request.
	if w := doRequest(h, http.MethodGet, "/api/status", testToken, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("old token still accepted: %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "/api/status", "rotated", ""); w.Code != http.StatusOK {
		t.Fatalf("new token rejected: %d", w.Code)
	}
}
