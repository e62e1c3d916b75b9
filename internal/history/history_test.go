package history

import (
	"context"
	"testing"
	"time"

	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

type fakeArticleCursor struct {
	items []core.Article
	i     int
}

func (c *fakeArticleCursor) Next(ctx context.Context) (*core.Article, error) {
	if c.i >= len(c.items) {
		return nil, nil
	}
	a := c.items[c.i]
	c.i++
	return &a, nil
}
func (c *fakeArticleCursor) Close() error { return nil }

type fakeArticleStore struct {
	byID map[string]core.Article
}

func (s *fakeArticleStore) QueryManyByTime(ctx context.Context, start, end time.Time) (core.ArticleCursor, error) {
	return &fakeArticleCursor{}, nil
}
func (s *fakeArticleStore) QueryOneByID(ctx context.Context, id string) (*core.Article, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

type fakeEventCursor struct {
	items []core.Event
	i     int
}

func (c *fakeEventCursor) Next(ctx context.Context) (*core.Event, error) {
	if c.i >= len(c.items) {
		return nil, nil
	}
	e := c.items[c.i]
	c.i++
	return &e, nil
}
func (c *fakeEventCursor) Close() error { return nil }

type fakeEventStore struct {
	events []core.Event
}

func (s *fakeEventStore) QueryRecentByTime(ctx context.Context, t time.Time, window time.Duration) (core.EventCursor, error) {
	return &fakeEventCursor{items: s.events}, nil
}
func (s *fakeEventStore) QueryOneByID(ctx context.Context, id string) (*core.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, nil
}
func (s *fakeEventStore) SaveItem(ctx context.Context, event *core.Event) error { return nil }

type fakeTable struct{}

func (fakeTable) Dim() int { return 2 }
func (fakeTable) Lookup(tok string) (vectormath.Vector, bool) {
	if tok == "market" {
		return vectormath.Vector{1, 0}, true
	}
	return nil, false
}

func longText() string {
	s := ""
	for i := 0; i < 50; i++ {
		s += "market "
	}
	return s
}

func TestLoadRestoresClusterAndHierarchy(t *testing.T) {
	articleStore := &fakeArticleStore{byID: map[string]core.Article{
		"a1": {ID: "a1", StemmedTitle: longText(), StemmedContent: longText()},
	}}
	eventStore := &fakeEventStore{events: []core.Event{
		{
			ID:        "parent-event",
			Articles:  []core.ArticleRef{{ID: "a1"}},
			Childrens: []string{"child-event"},
			Father:    "-1",
		},
	}}

	loaded, err := Load(context.Background(), eventStore, articleStore, time.Now(), 10*24*time.Hour, fakeTable{}, 80)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, ok := loaded.Store.Get("parent-event")
	if !ok {
		t.Fatal("expected parent-event cluster to be loaded")
	}
	if len(c.ArticleIDs) != 1 || c.ArticleIDs[0] != "a1" {
		t.Errorf("ArticleIDs = %v, want [a1]", c.ArticleIDs)
	}
	if !loaded.Store.HasChildren("parent-event") {
		t.Error("expected parent-event to have children restored")
	}
}

func TestLoadKeepsEventWithNoResolvableMembers(t *testing.T) {
	articleStore := &fakeArticleStore{byID: map[string]core.Article{}}
	eventStore := &fakeEventStore{events: []core.Event{
		{ID: "e1", Articles: []core.ArticleRef{{ID: "missing"}}, Father: "-1"},
	}}

	loaded, err := Load(context.Background(), eventStore, articleStore, time.Now(), 10*24*time.Hour, fakeTable{}, 80)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, ok := loaded.Store.Get("e1")
	if !ok {
		t.Fatal("expected event with no resolvable members to still be materialised")
	}
	if len(c.Vectors) != 0 || c.Centroid != nil {
		t.Errorf("expected empty vector matrix and nil centroid, got %d vectors", len(c.Vectors))
	}
}
