// Package store keeps client records and fill-run history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record or run does not exist.
var ErrNotFound = errors.New("store: not found")

// Schema is the DDL applied on Open.
const Schema = `
CREATE TABLE IF NOT EXISTS client_records (
    id         TEXT PRIMARY KEY,
    label      TEXT NOT NULL DEFAULT '',
    data       TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_updated ON client_records(updated_at DESC);

CREATE TABLE IF NOT EXISTS fill_runs (
    id           TEXT PRIMARY KEY,
    record_id    TEXT,
    section      TEXT NOT NULL DEFAULT '',
    page_url     TEXT NOT NULL DEFAULT '',
    success      INTEGER NOT NULL DEFAULT 0,
    message      TEXT NOT NULL DEFAULT '',
    filled_count INTEGER NOT NULL DEFAULT 0,
    skipped      INTEGER NOT NULL DEFAULT 0,
    errors       TEXT NOT NULL DEFAULT '[]',
    started_at   INTEGER NOT NULL,
    finished_at  INTEGER NOT NULL,
    FOREIGN KEY (record_id) REFERENCES client_records(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON fill_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_record ON fill_runs(record_id, started_at DESC);
`

// Store is the ds160fill database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the database at path, applies the pragmas and
// the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := setup(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

// OpenMemory opens an in-memory store for tests. A single connection keeps
// every query on the same database.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	s.DB.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

func setup(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func newID(prefix string) string {
	return prefix + uuid.Must(uuid.NewV7()).String()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// exec runs a statement, retrying up to three times with 100/200/300ms
// backoff while SQLite reports BUSY.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	const attempts = 3
	for i := range attempts {
		res, err := s.DB.ExecContext(ctx, query, args...)
		if err == nil || !isBusy(err) || i == attempts-1 {
			return res, err
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, fmt.Errorf("store: exec: retries exhausted")
}
