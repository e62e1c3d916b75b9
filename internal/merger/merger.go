// Package merger folds newly produced clusters into the run's cluster
// store, which by the time the merger runs also holds history loaded from
// prior persisted events.
package merger

import (
	"sort"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Outcome records, for every input cluster, whether it was installed
// standalone or folded into an existing cluster.
type Outcome struct {
	// Installed holds the ids of clusters kept as fresh standalone entries.
	Installed []string
	// Merged maps an input cluster's id to the id of the cluster it was
	// folded into.
	Merged map[string]string
}

// Merge folds each cluster in newClusters into store by centroid
// similarity. A cluster N joins the existing cluster B maximising
// cosine(N.centroid, B.centroid) when that similarity is at least
// threshold; otherwise N is installed as a new standalone entry, keeping
// its own id. Folding a cluster that held a hierarchy link (as a child or
// as a parent) removes that link, since a reabsorbed cluster is no longer a
// distinct sub-event.
func Merge(store *clusterstore.Store, newClusters map[string]*clusterstore.Cluster, threshold float64) Outcome {
	out := Outcome{Merged: make(map[string]string)}

	if store.Len() == 0 {
		for _, id := range sortedKeys(newClusters) {
			store.Put(newClusters[id])
			out.Installed = append(out.Installed, id)
		}
		return out
	}

	for _, id := range sortedKeys(newClusters) {
		n := newClusters[id]
		bestID, bestSim := bestExistingMatch(store, n.Centroid)

		if bestSim < threshold {
			store.Put(n)
			out.Installed = append(out.Installed, id)
			continue
		}

		store.MergeMembersInto(bestID, n.Vectors, n.ArticleIDs)
		out.Merged[id] = bestID

		store.UnlinkParent(id)
		store.UnlinkChildren(id)
	}
	return out
}

func bestExistingMatch(store *clusterstore.Store, centroid vectormath.Vector) (string, float64) {
	var bestID string
	bestSim := -1.0
	for id, c := range store.Centroids() {
		sim := vectormath.Cosine(centroid, c)
		if sim > bestSim {
			bestSim = sim
			bestID = id
		}
	}
	return bestID, bestSim
}

func sortedKeys(m map[string]*clusterstore.Cluster) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
