// Package engine runs the full clustering pipeline for one time window: it
// ingests the window's articles, vectorises and clusters them, merges the
// result against re-materialised history, reevaluates and splits diffuse
// clusters, and writes the final event records.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eventpulse/eventpulse/internal/clusterer"
	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/eventbuilder"
	"github.com/eventpulse/eventpulse/internal/history"
	"github.com/eventpulse/eventpulse/internal/logger"
	"github.com/eventpulse/eventpulse/internal/merger"
	"github.com/eventpulse/eventpulse/internal/reevaluate"
	"github.com/eventpulse/eventpulse/internal/vectorizer"
)

// Engine holds everything one run needs: the two storage backends, the
// word-vector table, and the thresholds/tuning read out of config.
type Engine struct {
	Articles core.ArticleStore
	Events   core.EventStore
	Table    vectorizer.Table

	Clustering config.Clustering
	Related    config.Related
	Paths      config.Paths

	Options eventbuilder.Options

	// Debug additionally dumps every cluster's membership and cohesion
	// distribution under Paths.OutputPath after the reevaluation stage.
	Debug bool
}

// New validates its inputs and returns an Engine ready to run. A nil store
// or table is a configuration error, fatal at construction before any I/O.
func New(articles core.ArticleStore, events core.EventStore, table vectorizer.Table, cfg *config.Config) (*Engine, error) {
	if articles == nil || events == nil {
		return nil, fmt.Errorf("%w: engine requires a non-nil article and event store", core.ErrConfigInvalid)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: engine requires a non-nil embedding table", core.ErrConfigInvalid)
	}
	return &Engine{
		Articles:   articles,
		Events:     events,
		Table:      table,
		Clustering: cfg.Clustering,
		Related:    cfg.Related,
		Paths:      cfg.Paths,
		Options: eventbuilder.Options{
			RelatedMaxResults: cfg.Related.MaxResults,
			RelatedMinScore:   cfg.Related.MinScore,
			TopKTerms:         eventbuilder.DefaultOptions().TopKTerms,
			LabelWords:        eventbuilder.DefaultOptions().LabelWords,
			Decay:             eventbuilder.DefaultOptions().Decay,
		},
	}, nil
}

// Result is the run-level summary recorded in the log files.
type Result struct {
	CostSeconds  float64         `json:"cost_seconds"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	Thresholds   RunThresholds   `json:"thresholds"`
	NNews        int             `json:"n_news"`
	NSingleEvent int             `json:"n_single_event"`
	NEvents      int             `json:"n_events"`
}

// RunThresholds mirrors the clustering knobs active for this run, for
// operators comparing log files across config changes.
type RunThresholds struct {
	SimThreshold         float64 `json:"simThreshold"`
	MergeSimThreshold    float64 `json:"mergeSimThreshold"`
	SubeventSimThreshold float64 `json:"subeventSimThreshold"`
	CosStdThreshold      float64 `json:"cosStdThreshold"`
}

// Run processes the single time window (start, end]. It returns a non-nil
// error only when a storage backend fails; an empty window is reported as
// success with NNews = 0 after writing the run log.
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	wallStart := time.Now()
	startStr := core.FormatTime(start)
	endStr := core.FormatTime(end)

	result := &Result{
		Start: startStr,
		End:   endStr,
		Thresholds: RunThresholds{
			SimThreshold:         e.Clustering.SimThreshold,
			MergeSimThreshold:    e.Clustering.MergeSimThreshold,
			SubeventSimThreshold: e.Clustering.SubeventSimThreshold,
			CosStdThreshold:      e.Clustering.CosStdThreshold,
		},
	}

	articleMap, ordered, err := e.loadWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}
	result.NNews = len(ordered)

	runPrefix := core.CreateEventID(startStr)
	log := logger.WithRun(runPrefix)

	if len(ordered) == 0 {
		log.Info("empty run window, nothing to cluster", "start", startStr, "end", endStr)
		result.CostSeconds = time.Since(wallStart).Seconds()
		writeRunLogs(e.Paths.LogPath, runPrefix, result)
		return result, nil
	}

	vectorized := vectorizer.Vectorize(ctx, e.Table, ordered, e.Clustering.ShortArticleThreshold)
	inputs := make([]clusterer.Input, len(vectorized))
	for i, v := range vectorized {
		inputs[i] = clusterer.Input{ArticleID: v.ArticleID, Vector: v.Vector}
	}

	newClusters := clusterer.Run(inputs, e.Clustering.SimThreshold, clusterer.ModeClustering, "", end).Clusters

	loaded, err := history.Load(ctx, e.Events, e.Articles, end, e.Clustering.Window(), e.Table, e.Clustering.ShortArticleThreshold)
	if err != nil {
		return nil, err
	}
	store := loaded.Store

	merger.Merge(store, newClusters, e.Clustering.MergeSimThreshold)

	reevaluate.Run(store, reevaluate.Thresholds{
		CosStdThreshold:      e.Clustering.CosStdThreshold,
		SubeventSimThreshold: e.Clustering.SubeventSimThreshold,
		MergeSimThreshold:    e.Clustering.MergeSimThreshold,
	}, end)

	if e.Debug {
		dumpClusters(e.Paths.OutputPath, runPrefix, store)
	}

	if err := e.fillMissingArticles(ctx, store, articleMap); err != nil {
		return nil, err
	}

	events := eventbuilder.BuildAll(store, articleMap, loaded.Events, core.FormatTime(wallStart), startStr, e.Options)

	for _, ev := range events {
		if err := e.Events.SaveItem(ctx, ev); err != nil {
			return nil, fmt.Errorf("%w: saving event %s: %v", core.ErrStoreUnavailable, ev.ID, err)
		}
		if ev.Count == 1 {
			result.NSingleEvent++
		}
	}
	result.NEvents = len(events)
	result.CostSeconds = time.Since(wallStart).Seconds()
	writeRunLogs(e.Paths.LogPath, runPrefix, result)

	log.Info("run complete",
		"start", startStr, "end", endStr,
		"n_news", result.NNews, "n_events", result.NEvents, "n_single_event", result.NSingleEvent,
		"cost_seconds", result.CostSeconds,
	)
	return result, nil
}

// loadWindow reads every article crawled in (start, end], preserving cursor
// order; the clusterer is order-dependent, so the cursor's crawl-time order
// is what makes runs reproducible.
func (e *Engine) loadWindow(ctx context.Context, start, end time.Time) (map[string]core.Article, []core.Article, error) {
	cursor, err := e.Articles.QueryManyByTime(ctx, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: querying article window: %v", core.ErrStoreUnavailable, err)
	}
	defer cursor.Close()

	articleMap := make(map[string]core.Article)
	var ordered []core.Article
	for {
		a, err := cursor.Next(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reading article cursor: %v", core.ErrStoreUnavailable, err)
		}
		if a == nil {
			break
		}
		articleMap[a.ID] = *a
		ordered = append(ordered, *a)
	}
	return articleMap, ordered, nil
}

// fillMissingArticles resolves any member article id not already present in
// articleMap — i.e. one pulled in only via history re-materialisation — so
// internal/eventbuilder has every article it needs to build ArticleRefs. A
// member that no longer resolves is a DataInconsistency: it is skipped, not
// fatal (history.Load already dropped unresolvable members from a cluster's
// vectors, but a once-resolved id can still be the only reference left).
func (e *Engine) fillMissingArticles(ctx context.Context, store *clusterstore.Store, articleMap map[string]core.Article) error {
	ids := store.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		c, ok := store.Get(id)
		if !ok {
			continue
		}
		for _, articleID := range c.ArticleIDs {
			if _, have := articleMap[articleID]; have {
				continue
			}
			a, err := e.Articles.QueryOneByID(ctx, articleID)
			if err != nil {
				return fmt.Errorf("%w: fetching article %s: %v", core.ErrStoreUnavailable, articleID, err)
			}
			if a == nil {
				continue
			}
			articleMap[articleID] = *a
		}
	}
	return nil
}
