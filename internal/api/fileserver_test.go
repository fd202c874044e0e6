// SPDX-License-Identifier: MIT
package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeReport(t *testing.T, dataDir, name, content string) string {
	t.Helper()
	dir := filepath.Join(dataDir, "reports")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir reports: %v", err)
	}
	return writeFile(t, dir, name, content)
}

func TestFiles_ServesReport(t *testing.T) {
	s, cfg := newTestServer(t)
	writeReport(t, cfg.DataDir, "requirements.findings.json", `{"errors":0}`)

	w := doRequest(s.Handler(), http.MethodGet, "/files/reports/requirements.findings.json", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `{"errors":0}` {
		t.Errorf("body = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
}

func TestFiles_ETagRoundTrip(t *testing.T) {
	s, cfg := newTestServer(t)
	writeReport(t, cfg.DataDir, "r.json", `{}`)
	h := s.Handler()

	w := doRequest(h, http.MethodGet, "/files/reports/r.json", testToken, "")
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag on first response")
	}

	req := httptest.NewRequest(http.MethodGet, "/files/reports/r.json", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("304 carried a body: %q", w.Body.String())
	}
}

func TestFiles_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s.Handler(), http.MethodGet, "/files/reports/ghost.json", testToken, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestFiles_TraversalDenied(t *testing.T) {
	s, cfg := newTestServer(t)
	secret := filepath.Join(filepath.Dir(cfg.DataDir), "secret.txt")
	if err := os.WriteFile(secret, []byte("secret"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	for _, target := range []string{
		"/files/../secret.txt",
		"/files/reports/../../secret.txt",
		"/files/%2e%2e/secret.txt",
		"/files/%252e%252e/secret.txt",
	} {
		w := doRequest(s.Handler(), http.MethodGet, target, testToken, "")
		if w.Code == http.StatusOK {
			t.Errorf("%s: traversal served the file", target)
		}
		if strings.Contains(w.Body.String(), "secret") {
			t.Errorf("%s: secret contents leaked", target)
		}
	}
}

func TestFiles_SymlinkEscapeDenied(t *testing.T) {
	s, cfg := newTestServer(t)
	outside := filepath.Join(filepath.Dir(cfg.DataDir), "outside.txt")
	if err := os.WriteFile(outside, []byte("outside"), 0o600); err != nil {
		t.Fatalf("write outside: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(cfg.DataDir, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	w := doRequest(s.Handler(), http.MethodGet, "/files/link.txt", testToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestFiles_DirectoryDenied(t *testing.T) {
	s, cfg := newTestServer(t)
	writeReport(t, cfg.DataDir, "r.json", `{}`)

	for _, target := range []string{"/files/reports/", "/files/reports"} {
		w := doRequest(s.Handler(), http.MethodGet, target, testToken, "")
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", target, w.Code)
		}
	}
}

func TestFiles_RequiresAuth(t *testing.T) {
	s, cfg := newTestServer(t)
	writeReport(t, cfg.DataDir, "r.json", `{}`)

	w := doRequest(s.Handler(), http.MethodGet, "/files/reports/r.json", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestIsPathTraversal(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"reports/r.json", false},
		{"../x", true},
		{"a/../../x", true},
		{"%2e%2e/x", true},
		{"%252e%252e/x", true},
		{"a\\b", true},
		{"a%00b", true},
		{"nested/dir/file.json", false},
	}
	for _, tc := range cases {
		if got := isPathTraversal(tc.path); got != tc.want {
			t.Errorf("isPathTraversal(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
