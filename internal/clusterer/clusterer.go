// Package clusterer implements the single-pass leader-follower clustering
// step: each article vector either joins the most similar cluster-so-far or
// founds a new one, in both the normal "clustering" pass and the "split"
// pass invoked by internal/reevaluate.
package clusterer

import (
	"time"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Mode selects between a plain clustering pass and a split pass, which
// reuses the diffuse cluster's own id for its first fragment.
type Mode int

const (
	ModeClustering Mode = iota
	ModeSplit
)

// Input is one vectorised article, in the order it should be considered.
type Input struct {
	ArticleID string
	Vector    vectormath.Vector
}

// Result is the output of one leader-follower pass.
type Result struct {
	// Clusters holds every cluster minted or grown during this pass, keyed
	// by id.
	Clusters map[string]*clusterstore.Cluster
	// Order preserves cluster creation order; Order[0] is the fragment that
	// inherited ParentEventID in split mode.
	Order []string
	// ParentLinks maps a freshly minted fragment id to the parentEventId it
	// should be registered under. Populated only in split mode, and never
	// for Order[0] (which reuses the parent's own id rather than linking
	// to it).
	ParentLinks map[string]string
}

// Run performs one leader-follower pass over inputs. threshold is the
// minimum cosine similarity to an existing cluster centroid required to
// join it rather than found a new cluster. parentEventID is only consulted
// in ModeSplit, where the first new cluster created reuses it as its id.
func Run(inputs []Input, threshold float64, mode Mode, parentEventID string, now time.Time) Result {
	res := Result{
		Clusters:    make(map[string]*clusterstore.Cluster),
		ParentLinks: make(map[string]string),
	}

	hasParent := mode == ModeSplit && parentEventID != ""

	for _, in := range inputs {
		bestID, bestSim := bestMatch(res.Clusters, in.Vector)

		if len(res.Clusters) == 0 || bestSim < threshold {
			var key string
			firstFragment := false
			if hasParent {
				key = parentEventID
				hasParent = false
				firstFragment = true
			} else {
				key = core.MintEventID(now)
			}
			res.Clusters[key] = &clusterstore.Cluster{
				ID:         key,
				Vectors:    []vectormath.Vector{in.Vector},
				ArticleIDs: []string{in.ArticleID},
				Centroid:   in.Vector,
			}
			res.Order = append(res.Order, key)
			if mode == ModeSplit && !firstFragment && parentEventID != "" {
				res.ParentLinks[key] = parentEventID
			}
		} else {
			c := res.Clusters[bestID]
			c.Centroid = vectormath.UpdateCentroidIncremental(c.Centroid, in.Vector, len(c.Vectors))
			c.Vectors = append(c.Vectors, in.Vector)
			c.ArticleIDs = append(c.ArticleIDs, in.ArticleID)
		}
	}
	return res
}

// bestMatch returns the id and similarity of the cluster whose centroid is
// most similar to v, among those minted so far in this pass.
func bestMatch(clusters map[string]*clusterstore.Cluster, v vectormath.Vector) (string, float64) {
	var bestID string
	bestSim := -1.0
	for id, c := range clusters {
		sim := vectormath.Cosine(v, c.Centroid)
		if sim > bestSim {
			bestSim = sim
			bestID = id
		}
	}
	return bestID, bestSim
}
