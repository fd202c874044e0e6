// SPDX-License-Identifier: MIT

// Package store persists audit run history. Three backends share one
// interface: an in-memory map for tests and ephemeral setups, Badger
// for a pure key-value deployment, and SQLite as the durable default.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backend names accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Trigger values recorded on a Run.
const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
	TriggerWatch    = "watch"
	TriggerCLI      = "cli"
)

// Run is one recorded audit of a manifest.
type Run struct {
	ID         string    `json:"id"`
	Manifest   string    `json:"manifest"`
	Trigger    string    `json:"trigger,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMS int64     `json:"durationMs"`
	Packages   int       `json:"packages"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
	Infos      int       `json:"infos"`
	Success    bool      `json:"success"`
	Err        string    `json:"error,omitempty"`
}

// Store is the run-history backend. GetRun returns (nil, nil) when the
// id is unknown. ListRuns returns newest first; limit <= 0 means all.
type Store interface {
	PutRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}

// OpenStore selects a backend by name. dir is the data directory for
// the durable backends; the empty backend defaults to memory.
func OpenStore(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		if dir == "" {
			return nil, fmt.Errorf("store: badger backend requires a data directory")
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
		return OpenBadgerStore(filepath.Join(dir, "runs.badger"))
	case BackendSQLite:
		if dir == "" {
			return nil, fmt.Errorf("store: sqlite backend requires a data directory")
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
		return OpenSQLiteStore(filepath.Join(dir, "runs.sqlite"))
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: memory, badger, sqlite)", backend)
	}
}
