package clusterstore

import (
	"testing"

	"github.com/eventpulse/eventpulse/internal/vectormath"
)

func TestAddMemberUpdatesCentroidIncrementally(t *testing.T) {
	s := New()
	s.Put(&Cluster{ID: "e1", Vectors: []vectormath.Vector{{1, 0}}, ArticleIDs: []string{"a1"}, Centroid: vectormath.Vector{1, 0}})
	s.AddMember("e1", "a2", vectormath.Vector{3, 0})

	c, ok := s.Get("e1")
	if !ok {
		t.Fatal("expected cluster e1 to exist")
	}
	if len(c.Vectors) != 2 || len(c.ArticleIDs) != 2 {
		t.Fatalf("expected 2 members, got %d/%d", len(c.Vectors), len(c.ArticleIDs))
	}
	if c.Centroid[0] != 2 {
		t.Errorf("Centroid[0] = %v, want 2", c.Centroid[0])
	}
}

func TestParentChildLinking(t *testing.T) {
	s := New()
	s.SetParent("child1", "parent")
	s.SetParent("child2", "parent")

	if !s.HasChildren("parent") {
		t.Fatal("expected parent to have children")
	}
	if p, ok := s.Parent("child1"); !ok || p != "parent" {
		t.Fatalf("Parent(child1) = (%q,%v), want (parent,true)", p, ok)
	}
	if len(s.ChildrenOf("parent")) != 2 {
		t.Fatalf("expected 2 children, got %d", len(s.ChildrenOf("parent")))
	}
}

func TestUnlinkParentRemovesBothDirections(t *testing.T) {
	s := New()
	s.SetParent("child1", "parent")
	s.UnlinkParent("child1")

	if _, ok := s.Parent("child1"); ok {
		t.Error("expected child1 to have no parent after unlink")
	}
	if s.HasChildren("parent") {
		t.Error("expected parent to have no children after unlink")
	}
}

func TestIsUpdatedDefaultsTrueForFreshCluster(t *testing.T) {
	s := New()
	s.Put(&Cluster{ID: "fresh"})
	if !s.IsUpdated("fresh") {
		t.Error("expected a fresh cluster to be considered updated")
	}
}

func TestIsUpdatedFalseForUntouchedLoadedCluster(t *testing.T) {
	s := New()
	s.Put(&Cluster{ID: "old"})
	s.MarkLoadedFromStore("old")
	if s.IsUpdated("old") {
		t.Error("expected a loaded, untouched cluster to not be updated")
	}
	s.MarkUpdated("old")
	if !s.IsUpdated("old") {
		t.Error("expected MarkUpdated to flip IsUpdated to true")
	}
}

func TestDeleteClearsHierarchyLinks(t *testing.T) {
	s := New()
	s.Put(&Cluster{ID: "parent"})
	s.Put(&Cluster{ID: "child"})
	s.SetParent("child", "parent")

	s.Delete("parent")
	if _, ok := s.Get("parent"); ok {
		t.Error("expected parent to be removed")
	}
	if _, ok := s.Parent("child"); ok {
		t.Error("expected child's parent link to be cleared")
	}
}
