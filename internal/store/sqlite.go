package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexcole/firechat/internal/bus"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a single-file SQLite database: one row per
// path holding the whole JSON document. It gives a single client durable
// local state with the same per-path atomicity the contract requires.
type SQLite struct {
	db  *sql.DB
	bus *bus.Bus
}

// OpenSQLite opens (or creates) the database at path with WAL mode and a
// busy timeout, and verifies the connection. Run Migrate before first use.
func OpenSQLite(path string, b *bus.Bus) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &SQLite{db: db, bus: b}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the JSON document stored at path.
func (s *SQLite) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM paths WHERE path = ?`, path).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(value), nil
}

// Set replaces the document at path. The row write is atomic; there is no
// cross-path transaction.
func (s *SQLite) Set(ctx context.Context, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", path, err)
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO paths (path, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		path, string(raw), now)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	publish(s.bus, path, raw)
	return nil
}

// Observe streams snapshots for path and its subtree.
func (s *SQLite) Observe(ctx context.Context, path string) (<-chan Snapshot, func()) {
	return observe(ctx, s, s.bus, path)
}
