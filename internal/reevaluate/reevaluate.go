// Package reevaluate recomputes cluster centroids after merging, detects
// clusters that have grown too diffuse to represent a single event, and
// splits them, feeding the resulting fragments back through the merger.
package reevaluate

import (
	"sort"
	"time"

	"github.com/eventpulse/eventpulse/internal/clusterer"
	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/merger"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Thresholds bundles the three similarity parameters this stage needs, to
// keep its Run signature manageable.
type Thresholds struct {
	CosStdThreshold       float64 // cohesion stddev above which a cluster is diffuse
	SubeventSimThreshold  float64 // similarity threshold used for the split's own clustering pass
	MergeSimThreshold     float64 // similarity threshold for re-merging split fragments
}

// Run recomputes every cluster's centroid, splits any cluster whose
// cohesion stddev exceeds CosStdThreshold, and re-merges the resulting
// fragments (other than each split's first, parent-id-preserving fragment)
// back into the store. It returns the merger outcome for the fragment
// re-merge pass (empty if nothing split).
func Run(store *clusterstore.Store, th Thresholds, now time.Time) merger.Outcome {
	ids := store.IDs()
	sort.Strings(ids)

	fragments := make(map[string]*clusterstore.Cluster)

	for _, id := range ids {
		store.RecomputeCentroid(id)
		c, ok := store.Get(id)
		if !ok || len(c.Vectors) < 2 {
			continue
		}
		_, std := vectormath.Cohesion(c.Vectors, c.Centroid)
		if std <= th.CosStdThreshold {
			continue
		}

		inputs := make([]clusterer.Input, len(c.Vectors))
		for i, v := range c.Vectors {
			inputs[i] = clusterer.Input{ArticleID: c.ArticleIDs[i], Vector: v}
		}
		res := clusterer.Run(inputs, th.SubeventSimThreshold, clusterer.ModeSplit, id, now)
		if len(res.Order) == 0 {
			continue
		}

		first := res.Clusters[res.Order[0]]
		store.Put(first) // overwrites id's vectors/ids/centroid with the first fragment
		store.MarkUpdated(id)

		for _, fid := range res.Order[1:] {
			fragments[fid] = res.Clusters[fid]
			if parent, ok := res.ParentLinks[fid]; ok {
				store.SetParent(fid, parent)
			}
		}
	}

	if len(fragments) == 0 {
		return merger.Outcome{Merged: make(map[string]string)}
	}
	return merger.Merge(store, fragments, th.MergeSimThreshold)
}
