// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/manifest"
	"github.com/reqwatch/reqwatch/internal/store"
)

const (
	// auditTimeout bounds an API-triggered audit run. The job runs on a
	// detached context so a disconnecting client cannot abort it.
	auditTimeout = 5 * time.Minute

	defaultListLimit = 20
	maxListLimit     = 500
)

// statusResponse is the GET /api/status body.
type statusResponse struct {
	Service       string      `json:"service"`
	Version       string      `json:"version"`
	UptimeSeconds int64       `json:"uptimeSeconds"`
	Manifests     []string    `json:"manifests"`
	PinsFile      string      `json:"pinsFile,omitempty"`
	Audit         jobs.Status `json:"audit"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg, runner := s.snapshot()

	writeJSON(w, http.StatusOK, statusResponse{
		Service:       "reqwatch",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Manifests:     cfg.Manifests,
		PinsFile:      cfg.PinsFile,
		Audit:         runner.Status(),
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	_, runner := s.snapshot()

	// Detach from the request context but keep the request ID for
	// correlation across the run's log lines.
	jobCtx := log.ContextWithRequestID(context.Background(), log.RequestIDFromContext(r.Context()))
	jobCtx, cancel := context.WithTimeout(jobCtx, auditTimeout)
	defer cancel()

	run, err := runner.Audit(jobCtx, store.TriggerAPI)
	if errors.Is(err, jobs.ErrAuditRunning) {
		logger.Warn().
			Str("event", "audit.conflict").
			Msg("audit already in progress")
		writeConflict(w, "An audit run is already in progress", "30")
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}

	// Lint findings and even a failed run are reported in the body; the
	// status code only says the run happened.
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeInternal(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeInternal(w, err)
		return
	}
	if run == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	cfg, runner := s.snapshot()

	r.Body = http.MaxBytesReader(w, r.Body, cfg.API.MaxLintBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		writeError(w, err)
		return
	}

	name := r.URL.Query().Get("manifest")
	if name == "" {
		name = "request"
	}

	res, err := runner.LintBytes(r.Context(), name, data)
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// manifestInfo is one entry of the GET /api/manifests body.
type manifestInfo struct {
	Path           string          `json:"path"`
	Stats          *manifest.Stats `json:"stats,omitempty"`
	Error          string          `json:"error,omitempty"`
	FindingsReport string          `json:"findingsReport,omitempty"`
	LicensesReport string          `json:"licensesReport,omitempty"`
}

func (s *Server) handleManifests(w http.ResponseWriter, r *http.Request) {
	cfg, runner := s.snapshot()

	infos := make([]manifestInfo, 0, len(cfg.Manifests))
	for _, path := range cfg.Manifests {
		info := manifestInfo{Path: path}

		m, err := manifest.ParseFile(path)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}
		stats := m.Stats()
		info.Stats = &stats

		// Report links appear once the first audit has written them.
		findings, licenses, ok := runner.ReportPaths(path)
		if ok {
			if _, err := os.Stat(findings); err == nil {
				info.FindingsReport = "/files/reports/" + filepath.Base(findings)
			}
			if _, err := os.Stat(licenses); err == nil {
				info.LicensesReport = "/files/reports/" + filepath.Base(licenses)
			}
		}

		infos = append(infos, info)
	}

	writeJSON(w, http.StatusOK, infos)
}
