// Package persistence is the PostgreSQL-backed implementation of
// core.ArticleStore and core.EventStore, for production deployments. It
// mirrors internal/store's SQLite repositories field-for-field but stores
// the dynamic/array-shaped columns as jsonb and tracks schema changes
// through embedded, numbered migrations rather than an inline CREATE TABLE
// IF NOT EXISTS.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/eventpulse/eventpulse/internal/core"
)

// execer is the subset of *sql.DB (or *sql.Tx) the migration runner needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB owns the Postgres connection pool and hands out the two repositories
// an engine run needs: Articles() and Events().
type DB struct {
	db       *sql.DB
	articles *ArticleRepo
	events   *EventRepo
}

// Open connects to dsn, verifies it, and runs pending migrations.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening postgres connection: %v", core.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pinging postgres: %v", core.ErrStoreUnavailable, err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: running migrations: %v", core.ErrStoreUnavailable, err)
	}

	return &DB{
		db:       db,
		articles: &ArticleRepo{db: db},
		events:   &EventRepo{db: db},
	}, nil
}

// Articles returns the article repository (core.ArticleStore + core.ArticleWriter).
func (d *DB) Articles() *ArticleRepo { return d.articles }

// Events returns the event repository (core.EventStore).
func (d *DB) Events() *EventRepo { return d.events }

// Close closes the underlying connection pool.
func (d *DB) Close() error { return d.db.Close() }

// Ping verifies the connection is still alive.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
