// Package cmd wires the eventpulse CLI: a run command driving one
// clustering window, and an ingest command feeding the article store from
// configured RSS/Atom feeds.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/persistence"
	"github.com/eventpulse/eventpulse/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eventpulse",
	Short: "Incremental online news clustering engine",
	Long: `eventpulse groups a continuous stream of news articles into evolving
events: each run clusters one time window of fresh articles, merges the
result against recently persisted events, splits clusters that have grown
too diffuse, and writes the updated event records back to storage.

Examples:
  eventpulse run
  eventpulse run --start "2026-07-29 00:00:00" --end "2026-07-30 00:00:00"
  eventpulse ingest https://example.com/rss`,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .eventpulse.yaml in . or $HOME)")
}

// articleBackend is what ingestion needs from article storage: the run's
// read-only view plus the upsert the feed fetcher writes through.
type articleBackend interface {
	core.ArticleStore
	core.ArticleWriter
}

// openBackend opens the configured storage backend and returns its two
// repositories plus a close function.
func openBackend(ctx context.Context, cfg *config.Config) (articleBackend, core.EventStore, func() error, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := store.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return s.Articles(), s.Events(), s.Close, nil
	case "postgres":
		db, err := persistence.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return db.Articles(), db.Events(), db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown storage backend %q", core.ErrConfigInvalid, cfg.Storage.Backend)
	}
}
