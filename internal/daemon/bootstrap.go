// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reqwatch/reqwatch/internal/api"
	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/health"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/store"
	"github.com/reqwatch/reqwatch/internal/telemetry"
)

// Options carries the inputs main resolves before wiring the daemon.
type Options struct {
	// Version is the build version, reported by the API and health
	// endpoints.
	Version string

	// Holder provides the current configuration and reload fan-out.
	Holder *config.Holder

	// MetricsHandler serves the metrics listener (typically
	// promhttp.Handler()); nil disables it.
	MetricsHandler http.Handler
}

// Daemon bundles the wired subsystems. Run blocks until shutdown.
type Daemon struct {
	App       *App
	Manager   Manager
	API       *api.Server
	Store     store.Store
	Telemetry *telemetry.Provider
}

// New wires the whole daemon from the holder's current configuration:
// telemetry, store, runner, health checks, API server, listener manager
// and the app. Store and telemetry teardown are registered as shutdown
// hooks on the manager.
func New(ctx context.Context, opts Options) (*Daemon, error) {
	if opts.Holder == nil {
		return nil, fmt.Errorf("config holder is required")
	}
	cfg := opts.Holder.Get()
	logger := log.WithComponent("daemon")

	// Tracing is best-effort: a collector that is down must not keep
	// the daemon from starting.
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "reqwatch",
		ServiceVersion: opts.Version,
		ExporterType:   cfg.Telemetry.Protocol,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("telemetry initialization failed, continuing without tracing")
		provider = nil
	}

	st, err := store.OpenStore(cfg.Store.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	runner, err := jobs.FromConfig(cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("build runner: %w", err)
	}

	hm := health.NewManager(opts.Version)
	for _, m := range cfg.Manifests {
		hm.RegisterChecker(health.NewFileChecker("manifest:"+m, m))
	}
	hm.RegisterChecker(health.NewFileChecker("pins", cfg.PinsFile))
	hm.RegisterChecker(health.NewStoreChecker(st))

	apiServer := api.New(cfg, runner, st, hm, opts.Version)

	mgr, err := NewManager(ServerConfigFor(cfg), Deps{
		Logger:         logger,
		APIHandler:     apiServer.Handler(),
		MetricsHandler: opts.MetricsHandler,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create manager: %w", err)
	}

	mgr.RegisterShutdownHook("store", func(context.Context) error {
		return st.Close()
	})
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}

	app := NewApp(logger, mgr, opts.Holder, apiServer, st, cfg, runner)

	// The run checker reads through the app so a reload that swaps the
	// runner does not leave readiness watching a stale generation.
	hm.RegisterChecker(health.NewLastRunChecker(func() (time.Time, string) {
		_, r := app.snapshot()
		s := r.Status()
		return s.LastRun, s.Error
	}, lastRunMaxAge(cfg)))

	return &Daemon{
		App:       app,
		Manager:   mgr,
		API:       apiServer,
		Store:     st,
		Telemetry: provider,
	}, nil
}

// Run starts the daemon and blocks until ctx is cancelled or a fatal
// error occurs.
func (d *Daemon) Run(ctx context.Context) error {
	return d.App.Run(ctx)
}

// lastRunMaxAge allows three missed scheduler ticks before the last
// successful audit counts as stale. Without a scheduler there is no
// expected cadence, so staleness is not checked.
func lastRunMaxAge(cfg *config.Config) time.Duration {
	if cfg.Audit.Interval <= 0 {
		return 0
	}
	return 3 * cfg.Audit.Interval
}

// WaitForShutdown returns a context cancelled by SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
