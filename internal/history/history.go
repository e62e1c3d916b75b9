// Package history re-materialises previously persisted events into a fresh
// clusterstore.Store at the start of a run: each event's member articles
// are re-fetched and re-vectorised, and its hierarchy links are restored.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectorizer"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Loaded is the result of re-materialising history: the populated cluster
// store, plus the raw events keyed by id, preserved so internal/eventbuilder
// can recover fields (created time, existing extras) no vectorisation pass
// can reconstruct.
type Loaded struct {
	Store  *clusterstore.Store
	Events map[string]*core.Event
}

// Load queries EventStore for events still open within window of t, then
// re-vectorises each member article to rebuild the cluster's vectors and
// centroid, skipping any article that no longer meets the short-article
// threshold or no longer exists (data inconsistency, not fatal: the event
// is kept with whatever members still resolve).
func Load(ctx context.Context, events core.EventStore, articles core.ArticleStore, t time.Time, window time.Duration, table vectorizer.Table, shortThreshold int) (*Loaded, error) {
	cursor, err := events.QueryRecentByTime(ctx, t, window)
	if err != nil {
		return nil, fmt.Errorf("%w: querying recent events: %v", core.ErrStoreUnavailable, err)
	}
	defer cursor.Close()

	store := clusterstore.New()
	raw := make(map[string]*core.Event)

	for {
		event, err := cursor.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: reading event cursor: %v", core.ErrStoreUnavailable, err)
		}
		if event == nil {
			break
		}
		raw[event.ID] = event

		cluster := &clusterstore.Cluster{ID: event.ID}
		for _, ref := range event.Articles {
			article, err := articles.QueryOneByID(ctx, ref.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: fetching article %s for event %s: %v", core.ErrStoreUnavailable, ref.ID, event.ID, err)
			}
			if article == nil {
				// Referenced article no longer resolves; skip it and keep
				// the rest of the event's membership intact.
				continue
			}
			text := article.StemmedText()
			if len(text) <= shortThreshold {
				continue
			}
			vec := vectorizer.VectorizeSingle(table, text)
			cluster.Vectors = append(cluster.Vectors, vec)
			cluster.ArticleIDs = append(cluster.ArticleIDs, article.ID)
		}
		// An event whose every member failed to resolve or re-vectorise is
		// still materialised, with an empty vector matrix and nil centroid;
		// downstream centroid operations guard for it.
		if len(cluster.Vectors) > 0 {
			cluster.Centroid = vectormath.Centroid(cluster.Vectors)
		}
		store.Put(cluster)
		store.MarkLoadedFromStore(event.ID)

		if event.Father != "" && event.Father != "-1" {
			store.SetParent(event.ID, event.Father)
		}
		for _, child := range event.Childrens {
			store.SetParent(child, event.ID)
		}
	}

	return &Loaded{Store: store, Events: raw}, nil
}
