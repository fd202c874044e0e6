// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/reqwatch/reqwatch/internal/log"
)

// Holder holds configuration with atomic reloading. It provides
// thread-safe access and supports hot reloading from file changes,
// SIGHUP, or a manual trigger.
type Holder struct {
	mu         sync.RWMutex
	current    *Config
	loader     *Loader
	configPath string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- *Config
}

// NewHolder creates a configuration holder with an initial config.
func NewHolder(initial *Config, loader *Loader, configPath string) *Holder {
	return &Holder{
		current:         initial,
		loader:          loader,
		configPath:      configPath,
		logger:          log.WithComponent("config"),
		reloadListeners: make([]chan<- *Config, 0),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload rebuilds the configuration from file and environment. If the
// new configuration fails to load or validate, the old one is kept and
// the error is returned; either the full config applies or nothing
// changes.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")

	return nil
}

// StartWatcher starts watching the config file for changes. With no
// config file this is a no-op; the configuration came from ENV only.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	h.watcher = watcher

	if err := watcher.Add(h.configPath); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.configPath).
		Msg("watching config file for changes")

	go h.watchLoop(ctx)

	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	// Debounce rapid successive writes into one reload.
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			if h.watcher != nil {
				_ = h.watcher.Close()
			}
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Write and Create cover vim, nano and plain redirection.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().
					Str("event", "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Error().
							Err(err).
							Str("event", "config.auto_reload_failed").
							Msg("automatic config reload failed")
					}
				})
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running).
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterListener registers a channel that receives the new config
// whenever a reload succeeds. The caller owns the channel.
func (h *Holder) RegisterListener(ch chan<- *Config) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new config to all listeners without blocking.
func (h *Holder) notifyListeners(newCfg *Config) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

// logChanges logs the operationally interesting differences between
// the old and new configuration.
func (h *Holder) logChanges(old, newCfg *Config) {
	if old == nil || newCfg == nil {
		return
	}
	if old.Audit.Interval != newCfg.Audit.Interval {
		h.logger.Info().
			Dur("old", old.Audit.Interval).
			Dur("new", newCfg.Audit.Interval).
			Msg("config changed: audit.interval")
	}
	if !slices.Equal(old.Manifests, newCfg.Manifests) {
		h.logger.Info().
			Strs("old", old.Manifests).
			Strs("new", newCfg.Manifests).
			Msg("config changed: manifests")
	}
	if old.Index.URL != newCfg.Index.URL {
		h.logger.Info().
			Str("old", old.Index.URL).
			Str("new", newCfg.Index.URL).
			Msg("config changed: index.url")
	}
	if old.Store.Backend != newCfg.Store.Backend {
		h.logger.Info().
			Str("old", old.Store.Backend).
			Str("new", newCfg.Store.Backend).
			Msg("config changed: store.backend")
	}
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().
			Str("old", old.LogLevel).
			Str("new", newCfg.LogLevel).
			Msg("config changed: log_level")
	}
	if old.API.Token != newCfg.API.Token {
		h.logger.Info().Msg("config changed: api.token")
	}
}
