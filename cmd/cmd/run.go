package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/engine"
	"github.com/eventpulse/eventpulse/internal/logger"
	"github.com/eventpulse/eventpulse/internal/wordvec"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster one time window of articles into events",
	Long: `Run one clustering window: fetch articles crawled in (start, end],
vectorise and cluster them, merge against events persisted within the
history window, split diffuse clusters, and upsert the resulting events.

Without flags the window is the 24 hours ending now. Times are given in
the canonical "YYYY-MM-DD HH:MM:SS" form, interpreted as UTC.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		startFlag, _ := cmd.Flags().GetString("start")
		endFlag, _ := cmd.Flags().GetString("end")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		end := time.Now().UTC().Truncate(time.Second)
		if endFlag != "" {
			if end, err = core.ParseTime(endFlag); err != nil {
				return fmt.Errorf("%w: parsing --end: %v", core.ErrConfigInvalid, err)
			}
		}
		start := end.Add(-24 * time.Hour)
		if startFlag != "" {
			if start, err = core.ParseTime(startFlag); err != nil {
				return fmt.Errorf("%w: parsing --start: %v", core.ErrConfigInvalid, err)
			}
		}
		if !start.Before(end) {
			return fmt.Errorf("%w: start %s must precede end %s", core.ErrConfigInvalid, core.FormatTime(start), core.FormatTime(end))
		}

		table, err := wordvec.Load(cfg.Paths.EmbeddingsPath, cfg.Clustering.Dim)
		if err != nil {
			return err
		}
		logger.Info("embeddings loaded", "path", cfg.Paths.EmbeddingsPath, "tokens", table.Len(), "dim", table.Dim())

		ctx := cmd.Context()
		articles, events, closeBackend, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeBackend()

		eng, err := engine.New(articles, events, table, cfg)
		if err != nil {
			return err
		}
		eng.Debug = debug

		result, err := eng.Run(ctx, start, end)
		if err != nil {
			return err
		}
		fmt.Printf("clustered %d articles into %d events (%d single-article) in %.1fs\n",
			result.NNews, result.NEvents, result.NSingleEvent, result.CostSeconds)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("start", "", "window start, \"YYYY-MM-DD HH:MM:SS\" (default: end minus 24h)")
	runCmd.Flags().String("end", "", "window end, \"YYYY-MM-DD HH:MM:SS\" (default: now)")
	runCmd.Flags().Bool("debug", false, "dump cluster membership and cohesion distributions under paths.output_path")
}
