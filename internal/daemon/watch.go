// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reqwatch/reqwatch/internal/config"
	"github.com/reqwatch/reqwatch/internal/store"
)

// watchDebounce coalesces rapid successive writes into one audit.
const watchDebounce = 500 * time.Millisecond

// runWatcher re-audits when a watched manifest or the pins file
// changes. A config reload wakes the loop so the watch set follows the
// configuration.
func (a *App) runWatcher(ctx context.Context) error {
	for {
		rearm, err := a.watchManifests(ctx)
		if err != nil {
			// Best-effort: a broken watch set must not take the daemon
			// down. Wait for a reload that may fix the paths.
			a.logger.Warn().
				Err(err).
				Str("event", "watch.start_failed").
				Msg("manifest watcher unavailable")
			select {
			case <-ctx.Done():
				return nil
			case <-a.watchWake:
				continue
			}
		}
		if !rearm {
			return nil
		}
	}
}

// watchManifests blocks watching the configured files. It returns true
// when the watch set must be rebuilt after a config change and false
// when ctx ended.
func (a *App) watchManifests(ctx context.Context) (bool, error) {
	cfg, _ := a.snapshot()
	if !cfg.Audit.Watch {
		select {
		case <-ctx.Done():
			return false, nil
		case <-a.watchWake:
			return true, nil
		}
	}

	files, dirs := watchSet(cfg)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return false, fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Directories rather than files are registered because editors and
	// atomic writers replace files, which silently drops a file-level
	// watch.
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return false, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	a.logger.Info().
		Str("event", "watch.started").
		Int("files", len(files)).
		Msg("watching manifests for changes")

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false, nil

		case <-a.watchWake:
			return true, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return false, nil
			}
			// Unrelated neighbors in a watched directory show up here
			// too; only events for the configured files count.
			if !files[filepath.Clean(event.Name)] {
				continue
			}
			// Write and Create cover vim, nano, plain redirection and
			// atomic rename-into-place.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			a.logger.Debug().
				Str("event", "watch.file_changed").
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("manifest changed")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				a.audit(ctx, store.TriggerWatch)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return false, nil
			}
			a.logger.Error().
				Err(err).
				Str("event", "watch.error").
				Msg("manifest watcher error")
		}
	}
}

// watchSet returns the files whose changes trigger an audit and the
// directories to register with fsnotify.
func watchSet(cfg *config.Config) (files map[string]bool, dirs []string) {
	files = make(map[string]bool)
	seen := make(map[string]bool)

	add := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		files[clean] = true
		dir := filepath.Dir(clean)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, m := range cfg.Manifests {
		add(m)
	}
	add(cfg.PinsFile)
	return files, dirs
}
