// SPDX-License-Identifier: MIT

// Package daemon owns the long-lived runtime: HTTP listener lifecycle,
// the audit scheduler, the manifest watcher, and configuration reload
// wiring.
package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reqwatch/reqwatch/internal/api"
	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/jobs"
	"github.com/reqwatch/reqwatch/internal/log"
	"github.com/reqwatch/reqwatch/internal/metrics"
	"github.com/reqwatch/reqwatch/internal/store"
)

// App owns the background subsystems (scheduler, watchers, reload
// wiring) and delegates listener management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	apiServer    *api.Server
	store        store.Store
	reloadSignal os.Signal

	mu     sync.RWMutex
	cfg    *config.Config
	runner *jobs.Runner

	schedWake chan struct{}
	watchWake chan struct{}
}

// NewApp wires the app. cfg and runner are the startup generation;
// every successful config reload replaces both.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, apiServer *api.Server, st store.Store, cfg *config.Config, runner *jobs.Runner) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		apiServer:    apiServer,
		store:        st,
		reloadSignal: syscall.SIGHUP,
		cfg:          cfg,
		runner:       runner,
		schedWake:    make(chan struct{}, 1),
		watchWake:    make(chan struct{}, 1),
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or
// a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		// Best-effort: startup must not fail because the config file
		// cannot be watched.
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().
				Err(err).
				Str("event", "config.watcher_start_failed").
				Msg("failed to start config watcher")
		}

		applyCh := make(chan *config.Config, 1)
		a.holder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					if cfg != nil {
						a.applyConfig(cfg)
					}
				}
			}
		})
	}

	// SIGHUP triggers a manual reload.
	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.holder.Reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error { return a.runScheduler(ctx) })
	g.Go(func() error { return a.runWatcher(ctx) })

	// Listener lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// snapshot returns the current configuration and runner generation.
func (a *App) snapshot() (*config.Config, *jobs.Runner) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg, a.runner
}

// applyConfig swaps in a new generation after a successful reload. A
// configuration whose runner cannot be built is rejected and the old
// generation stays live.
func (a *App) applyConfig(cfg *config.Config) {
	runner, err := jobs.FromConfig(cfg, a.store)
	if err != nil {
		metrics.IncConfigReload("rejected")
		a.logger.Error().
			Err(err).
			Str("event", "config.apply_failed").
			Msg("new config rejected, keeping the previous runner")
		return
	}

	a.mu.Lock()
	a.cfg = cfg
	a.runner = runner
	a.mu.Unlock()

	log.SetLevel(cfg.LogLevel)

	if a.apiServer != nil {
		a.apiServer.ApplyConfig(cfg, runner)
	}

	// Wake the scheduler and the watcher so interval and watch-set
	// changes take effect without a restart.
	select {
	case a.schedWake <- struct{}{}:
	default:
	}
	select {
	case a.watchWake <- struct{}{}:
	default:
	}

	metrics.IncConfigReload("applied")
	a.logger.Info().
		Str("event", "config.applied").
		Int("manifests", len(cfg.Manifests)).
		Msg("configuration applied")
}

// audit triggers one audit run. A trigger arriving while a run is in
// flight is dropped, not queued.
func (a *App) audit(ctx context.Context, trigger string) {
	_, runner := a.snapshot()
	if _, err := runner.Audit(ctx, trigger); err != nil {
		if errors.Is(err, jobs.ErrAuditRunning) {
			a.logger.Debug().
				Str("event", "audit.skipped").
				Str("trigger", trigger).
				Msg("audit already in flight, trigger dropped")
			return
		}
		a.logger.Error().
			Err(err).
			Str("event", "audit.trigger_failed").
			Str("trigger", trigger).
			Msg("audit trigger failed")
	}
}

// runScheduler performs the startup audit and then re-audits on the
// configured interval. A reload wakes the loop, so interval changes,
// including enabling a previously disabled scheduler, apply without a
// restart.
func (a *App) runScheduler(ctx context.Context) error {
	a.audit(ctx, store.TriggerSchedule)

	for {
		cfg, _ := a.snapshot()
		interval := cfg.Audit.Interval
		if interval <= 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-a.schedWake:
				continue
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-a.schedWake:
			timer.Stop()
		case <-timer.C:
			a.audit(ctx, store.TriggerSchedule)
		}
	}
}
