// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reqwatch/reqwatch/internal/persistence/sqlite"
)

const schemaVersion = 1

// SQLiteStore keeps run history in a SQLite database opened with the
// WAL pragmas from internal/persistence/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Timestamps are unix milliseconds so ORDER BY stays correct
	// regardless of formatting.
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		manifest TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		started_at_ms INTEGER NOT NULL,
		finished_at_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		packages INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		infos INTEGER NOT NULL,
		success INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) PutRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("store: run id is required")
	}
	query := `
	INSERT INTO runs (id, manifest, source, started_at_ms, finished_at_ms, duration_ms,
		packages, errors, warnings, infos, success, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		manifest = excluded.manifest,
		source = excluded.source,
		started_at_ms = excluded.started_at_ms,
		finished_at_ms = excluded.finished_at_ms,
		duration_ms = excluded.duration_ms,
		packages = excluded.packages,
		errors = excluded.errors,
		warnings = excluded.warnings,
		infos = excluded.infos,
		success = excluded.success,
		error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Manifest, run.Trigger,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.DurationMS,
		run.Packages, run.Errors, run.Warnings, run.Infos, run.Success, run.Err,
	)
	return err
}

const runColumns = `id, manifest, source, started_at_ms, finished_at_ms, duration_ms,
	packages, errors, warnings, infos, success, error`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite reads a negative LIMIT as "no limit"
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at_ms DESC, id ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Verify runs an integrity check against the database file. mode is
// "quick" or "full"; diagnostic rows come back when corruption is found.
func (s *SQLiteStore) Verify(mode string) ([]string, error) {
	return sqlite.VerifyIntegrity(s.path, mode)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedMS, finishedMS int64
	err := row.Scan(
		&run.ID, &run.Manifest, &run.Trigger, &startedMS, &finishedMS, &run.DurationMS,
		&run.Packages, &run.Errors, &run.Warnings, &run.Infos, &run.Success, &run.Err,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = time.UnixMilli(startedMS).UTC()
	run.FinishedAt = time.UnixMilli(finishedMS).UTC()
	return &run, nil
}

var _ Store = (*SQLiteStore)(nil)
