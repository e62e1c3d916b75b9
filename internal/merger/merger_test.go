package merger

import (
	"testing"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

func TestMergeInstallsVerbatimWhenStoreEmpty(t *testing.T) {
	store := clusterstore.New()
	fresh := map[string]*clusterstore.Cluster{
		"n1": {ID: "n1", Vectors: []vectormath.Vector{{1, 0}}, ArticleIDs: []string{"a1"}, Centroid: vectormath.Vector{1, 0}},
	}
	out := Merge(store, fresh, 0.7)
	if len(out.Installed) != 1 || out.Installed[0] != "n1" {
		t.Fatalf("Installed = %v, want [n1]", out.Installed)
	}
	if _, ok := store.Get("n1"); !ok {
		t.Error("expected n1 to be installed in store")
	}
}

func TestMergeFoldsIntoSimilarExisting(t *testing.T) {
	store := clusterstore.New()
	store.Put(&clusterstore.Cluster{ID: "b1", Vectors: []vectormath.Vector{{1, 0}}, ArticleIDs: []string{"old1"}, Centroid: vectormath.Vector{1, 0}})

	fresh := map[string]*clusterstore.Cluster{
		"n1": {ID: "n1", Vectors: []vectormath.Vector{{0.99, 0.01}}, ArticleIDs: []string{"a1"}, Centroid: vectormath.Vector{0.99, 0.01}},
	}
	out := Merge(store, fresh, 0.7)
	if out.Merged["n1"] != "b1" {
		t.Fatalf("Merged[n1] = %q, want b1", out.Merged["n1"])
	}
	b1, _ := store.Get("b1")
	if len(b1.ArticleIDs) != 2 {
		t.Fatalf("expected b1 to have 2 members after fold, got %d", len(b1.ArticleIDs))
	}
	if !store.IsUpdated("b1") {
		t.Error("expected b1 to be marked updated after fold")
	}
	if _, ok := store.Get("n1"); ok {
		t.Error("n1 should not exist as a standalone cluster after folding")
	}
}

func TestMergeInstallsStandaloneBelowThreshold(t *testing.T) {
	store := clusterstore.New()
	store.Put(&clusterstore.Cluster{ID: "b1", Vectors: []vectormath.Vector{{1, 0}}, ArticleIDs: []string{"old1"}, Centroid: vectormath.Vector{1, 0}})

	fresh := map[string]*clusterstore.Cluster{
		"n1": {ID: "n1", Vectors: []vectormath.Vector{{0, 1}}, ArticleIDs: []string{"a1"}, Centroid: vectormath.Vector{0, 1}},
	}
	out := Merge(store, fresh, 0.7)
	if len(out.Installed) != 1 || out.Installed[0] != "n1" {
		t.Fatalf("Installed = %v, want [n1]", out.Installed)
	}
	if _, ok := store.Get("n1"); !ok {
		t.Error("expected n1 to be installed standalone")
	}
}

func TestMergeUnlinksReabsorbedHierarchy(t *testing.T) {
	store := clusterstore.New()
	store.Put(&clusterstore.Cluster{ID: "b1", Vectors: []vectormath.Vector{{1, 0}}, ArticleIDs: []string{"old1"}, Centroid: vectormath.Vector{1, 0}})
	store.SetParent("n1", "some-parent")
	store.SetParent("grandchild", "n1")

	fresh := map[string]*clusterstore.Cluster{
		"n1": {ID: "n1", Vectors: []vectormath.Vector{{0.99, 0.01}}, ArticleIDs: []string{"a1"}, Centroid: vectormath.Vector{0.99, 0.01}},
	}
	Merge(store, fresh, 0.7)

	if _, ok := store.Parent("n1"); ok {
		t.Error("expected n1's parent link to be removed after reabsorption")
	}
	if store.HasChildren("n1") {
		t.Error("expected n1's children to be cleared after reabsorption")
	}
	if _, ok := store.Parent("grandchild"); ok {
		t.Error("expected grandchild to lose its parent link when n1 is dropped as a parent")
	}
}
