package reevaluate

import (
	"testing"
	"time"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

var refTime = time.Date(2026, 7, 29, 8, 0, 0, 0, time.UTC)

func TestRunSplitsDiffuseClusterAndPreservesParentID(t *testing.T) {
	store := clusterstore.New()
	// Two tight sub-groups of unequal size (three members and one),
	// near-orthogonal to each other: cohesion stddev is about 0.27, well
	// above the threshold, so the cluster splits.
	store.Put(&clusterstore.Cluster{
		ID: "original",
		Vectors: []vectormath.Vector{
			{1, 0.01}, {0.99, 0}, {0.98, 0.02}, {0.01, 0.99},
		},
		ArticleIDs: []string{"a1", "a2", "a3", "a4"},
	})

	th := Thresholds{CosStdThreshold: 0.05, SubeventSimThreshold: 0.9, MergeSimThreshold: 0.9}
	Run(store, th, refTime)

	c, ok := store.Get("original")
	if !ok {
		t.Fatal("expected original id to survive as the first fragment")
	}
	if len(c.ArticleIDs) == 4 {
		t.Error("expected original cluster to shrink to only its first fragment's members")
	}
}

func TestRunLeavesCohesiveClusterAlone(t *testing.T) {
	store := clusterstore.New()
	store.Put(&clusterstore.Cluster{
		ID:         "tight",
		Vectors:    []vectormath.Vector{{1, 0}, {0.99, 0.01}},
		ArticleIDs: []string{"a1", "a2"},
	})

	th := Thresholds{CosStdThreshold: 0.5, SubeventSimThreshold: 0.9, MergeSimThreshold: 0.9}
	Run(store, th, refTime)

	c, _ := store.Get("tight")
	if len(c.ArticleIDs) != 2 {
		t.Errorf("expected cohesive cluster to stay intact, got %d members", len(c.ArticleIDs))
	}
}

func TestRunSkipsSingleMemberClusters(t *testing.T) {
	store := clusterstore.New()
	store.Put(&clusterstore.Cluster{
		ID:         "solo",
		Vectors:    []vectormath.Vector{{1, 0}},
		ArticleIDs: []string{"a1"},
	})
	th := Thresholds{CosStdThreshold: 0, SubeventSimThreshold: 0.9, MergeSimThreshold: 0.9}
	out := Run(store, th, refTime)
	if len(out.Installed) != 0 || len(out.Merged) != 0 {
		t.Error("expected no split activity for a single-member cluster")
	}
}
