// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface of the audit service: status,
// on-demand audits, run history, ad-hoc linting and report downloads.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reqwatch/reqwatch/internal/api/middleware"
	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/health"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/store"
)

// Server is the HTTP API server. Config and runner are swapped together
// on reload; everything read per-request goes through the mutex.
type Server struct {
	mu     sync.RWMutex
	cfg    *config.Config
	runner *jobs.Runner

	store     store.Store
	health    *health.Manager
	version   string
	startTime time.Time
}

// New constructs the API server. The runner must already be built for
// cfg; ApplyConfig swaps both on reload.
func New(cfg *config.Config, runner *jobs.Runner, st store.Store, healthMgr *health.Manager, version string) *Server {
	return &Server{
		cfg:       cfg,
		runner:    runner,
		store:     st,
		health:    healthMgr,
		version:   version,
		startTime: time.Now(),
	}
}

// ApplyConfig installs a reloaded configuration and the runner built
// from it. Token auth and manifest listings pick the change up on the
// next request; listener-level settings (rate limit, CORS) keep the
// values the router was built with until restart.
func (s *Server) ApplyConfig(cfg *config.Config, runner *jobs.Runner) {
	s.mu.Lock()
	s.cfg = cfg
	s.runner = runner
	s.mu.Unlock()
}

// snapshot returns the current config and runner pair. Handlers read
// both once so a reload cannot split a request across generations.
func (s *Server) snapshot() (*config.Config, *jobs.Runner) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.runner
}

// Handler builds the router with the canonical middleware stack.
// Health endpoints stay public for probes; everything else requires the
// API token.
func (s *Server) Handler() http.Handler {
	cfg, _ := s.snapshot()

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = "reqwatch/api"
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            len(cfg.API.CORSOrigins) > 0,
		AllowedOrigins:        cfg.API.CORSOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        tracingService,
		EnableLogging:         true,
		RateLimitPerMinute:    cfg.API.RateLimit,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authMiddleware)
		pr.Get("/api/status", s.handleStatus)
		pr.Post("/api/audit", s.handleAudit)
		pr.Get("/api/audits", s.handleListAudits)
		pr.Get("/api/audits/{id}", s.handleGetAudit)
		pr.Post("/api/lint", s.handleLint)
		pr.Get("/api/manifests", s.handleManifests)
		pr.Get("/files/*", s.handleFiles)
		pr.Head("/files/*", s.handleFiles)
	})

	return r
}
