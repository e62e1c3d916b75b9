package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/eventpulse/eventpulse/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one numbered, idempotent schema file applied in order.
type migration struct {
	version int
	name    string
	sql     string
}

// migrate runs every embedded migration not yet recorded in
// schema_migrations, in ascending version order. Each migration is a plain
// Exec followed by a separate insert of its record; no transaction wraps
// the two.
func migrate(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name    TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scanning applied migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range all {
		if applied[m.version] {
			continue
		}
		logger.Info("applying migration", "version", m.version, "name", m.name)
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}
	return nil
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	out := make([]migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := migrationFiles.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, err
		}
		var version int
		var name string
		if _, err := fmt.Sscanf(e.Name(), "%04d_%s", &version, &name); err != nil {
			return nil, fmt.Errorf("migration file %s does not match NNNN_name.sql: %w", e.Name(), err)
		}
		out = append(out, migration{version: version, name: name, sql: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
