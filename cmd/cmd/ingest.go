package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/feeds"
	"github.com/eventpulse/eventpulse/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [feed-url ...]",
	Short: "Fetch RSS/Atom feeds into the article store",
	Long: `Fetch articles from RSS/Atom feeds and upsert them into the article
store, deduplicated by URL within this invocation, so a later
"eventpulse run" can cluster them.

Feed URLs come from arguments, or from feeds.urls in the config file when
no arguments are given (requires feeds.enabled: true).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		urls := args
		if len(urls) == 0 {
			if !cfg.Feeds.Enabled {
				return fmt.Errorf("%w: no feed URLs given and feeds.enabled is false", core.ErrConfigInvalid)
			}
			urls = cfg.Feeds.URLs
		}
		if len(urls) == 0 {
			return fmt.Errorf("%w: no feed URLs configured", core.ErrConfigInvalid)
		}

		ctx := cmd.Context()
		articles, _, closeBackend, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeBackend()

		fetcher := feeds.NewFetcher(articles)
		res := fetcher.FetchAll(ctx, urls)
		logger.Info("ingest complete", "feeds", res.FeedsFetched, "articles", res.ArticlesStored, "errors", len(res.Errors))
		fmt.Printf("fetched %d feeds, stored %d articles (%d errors)\n", res.FeedsFetched, res.ArticlesStored, len(res.Errors))
		if len(res.Errors) == len(urls) && len(urls) > 0 {
			return fmt.Errorf("all %d feeds failed, last error: %v", len(urls), res.Errors[len(res.Errors)-1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
