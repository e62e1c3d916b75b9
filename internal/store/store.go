// Package store is the SQLite-backed implementation of core.ArticleStore
// and core.EventStore, for single-binary / local-dev deployments that don't
// want a separate Postgres process. It uses the pure-Go modernc.org/sqlite
// driver so the binary stays cgo-free.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/eventpulse/eventpulse/internal/core"
)

// Store owns the SQLite connection and hands out the two repositories an
// engine run needs: Articles() and Events().
type Store struct {
	db       *sql.DB
	articles *ArticleRepo
	events   *EventRepo
}

// Open creates (if needed) and opens a SQLite database at path, creating
// the articles and events tables on first use.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating database directory: %v", core.ErrStoreUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite database: %v", core.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.articles = &ArticleRepo{db: db}
	s.events = &EventRepo{db: db}
	return s, nil
}

func (s *Store) initialize() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS articles (
		id              TEXT PRIMARY KEY,
		stemmed_title   TEXT NOT NULL,
		stemmed_content TEXT NOT NULL,
		content         TEXT,
		title           TEXT,
		publisher       TEXT,
		category        TEXT,
		url             TEXT,
		image           TEXT,
		publish_time    DATETIME,
		crawl_time      DATETIME,
		keywords        TEXT,
		when_items      TEXT,
		where_items     TEXT,
		who_items       TEXT,
		persons         TEXT,
		locations       TEXT,
		organizations   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_articles_crawl_time ON articles(crawl_time);

	CREATE TABLE IF NOT EXISTS events (
		id             TEXT PRIMARY KEY,
		created        TEXT,
		updated        TEXT,
		closed         INTEGER NOT NULL DEFAULT 0,
		closed_at      TEXT,
		count          INTEGER NOT NULL DEFAULT 0,
		label          TEXT,
		keynews        TEXT,
		articles       TEXT,
		keywords       TEXT,
		when_items     TEXT,
		where_items    TEXT,
		who_items      TEXT,
		persons        TEXT,
		locations      TEXT,
		organizations  TEXT,
		father         TEXT,
		childrens      TEXT,
		related_events TEXT,
		extra          TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_updated ON events(updated);
	CREATE INDEX IF NOT EXISTS idx_events_closed ON events(closed);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("%w: creating schema: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Articles returns the article repository (core.ArticleStore + core.ArticleWriter).
func (s *Store) Articles() *ArticleRepo { return s.articles }

// Events returns the event repository (core.EventStore).
func (s *Store) Events() *EventRepo { return s.events }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func marshalItems[T any](items []T) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalItems[T any](raw sql.NullString) ([]T, error) {
	var out []T
	if !raw.Valid || raw.String == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// marshalExtra/unmarshalExtra round-trip Event.Extra, the forward-compatible
// bag that preserves fields this version of the engine doesn't know about.
func marshalExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalExtra(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" || raw.String == "{}" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
