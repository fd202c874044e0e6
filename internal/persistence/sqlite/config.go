// SPDX-License-Identifier: MIT

// Package sqlite opens modernc.org/sqlite databases with the pragmas
// the run-history store relies on. Pragmas travel in the DSN so they
// apply to every connection in the pool, not just the first one.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Config defines operational parameters for a connection pool.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int // WAL permits concurrent readers alongside one writer
}

// DefaultConfig suits the audit run history: small writes, occasional
// list queries, and a busy timeout that outlasts checkpoint stalls.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 10,
	}
}

// Open initialises a SQLite connection pool with WAL journaling,
// busy_timeout, NORMAL synchronous and foreign keys enforced, and
// verifies connectivity before handing the pool back.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	return db, nil
}
