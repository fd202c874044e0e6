// SPDX-License-Identifier: MIT

package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return port
}

func TestRunHealthcheckCLI_Ready(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/readyz" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	args := []string{"-mode", "ready", "-port", strconv.Itoa(serverPort(t, srv))}
	if code := runHealthcheckCLI(args); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestRunHealthcheckCLI_LiveUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	args := []string{"-mode", "live", "-port", strconv.Itoa(serverPort(t, srv))}
	if code := runHealthcheckCLI(args); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunHealthcheckCLI_NetworkError(t *testing.T) {
	// Reserve a port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	args := []string{"-port", strconv.Itoa(port), "-timeout", "1s"}
	if code := runHealthcheckCLI(args); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}
