package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexcole/firechat/internal/bus"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is a Store backed by a shared PostgreSQL database, for setups
// where several clients point at one backing store. Change events still
// fan out on the in-process bus only; cross-process observation is the
// remote store's own concern.
type Postgres struct {
	db  *sql.DB
	bus *bus.Bus
}

// OpenPostgres connects with the given DSN, verifies the connection and
// bootstraps the paths table.
func OpenPostgres(ctx context.Context, dsn string, b *bus.Bus) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS paths (
			path TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT 0
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Postgres{db: db, bus: b}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Get returns the JSON document stored at path.
func (p *Postgres) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM paths WHERE path = $1`, path).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(value), nil
}

// Set replaces the document at path; the single-row upsert is the only
// atomicity offered, matching the store contract.
func (p *Postgres) Set(ctx context.Context, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", path, err)
	}
	now := time.Now().UnixMilli()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO paths (path, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		path, string(raw), now)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	publish(p.bus, path, raw)
	return nil
}

// Observe streams snapshots for path and its subtree.
func (p *Postgres) Observe(ctx context.Context, path string) (<-chan Snapshot, func()) {
	return observe(ctx, p, p.bus, path)
}
