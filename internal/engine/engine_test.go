package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eventpulse/eventpulse/internal/config"
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
	window []core.Article
	byID   map[string]core.Article
}

func (s *fakeArticleStore) QueryManyByTime(ctx context.Context, start, end time.Time) (core.ArticleCursor, error) {
	return &fakeArticleCursor{items: s.window}, nil
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
	recent []core.Event
	saved  map[string]*core.Event
}

func (s *fakeEventStore) QueryRecentByTime(ctx context.Context, t time.Time, window time.Duration) (core.EventCursor, error) {
	return &fakeEventCursor{items: s.recent}, nil
}
func (s *fakeEventStore) QueryOneByID(ctx context.Context, id string) (*core.Event, error) {
	if e, ok := s.saved[id]; ok {
		return e, nil
	}
	return nil, nil
}
func (s *fakeEventStore) SaveItem(ctx context.Context, event *core.Event) error {
	if s.saved == nil {
		s.saved = make(map[string]*core.Event)
	}
	s.saved[event.ID] = event
	return nil
}

type fakeTable struct{}

func (fakeTable) Dim() int { return 2 }
func (fakeTable) Lookup(tok string) (vectormath.Vector, bool) {
	switch tok {
	case "alpha":
		return vectormath.Vector{1, 0}, true
	case "beta":
		return vectormath.Vector{0, 1}, true
	}
	return nil, false
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Clustering: config.Clustering{
			Dim: 2, SimThreshold: 0.6, MergeSimThreshold: 0.7,
			SubeventSimThreshold: 0.8, CosStdThreshold: 0.15,
			WindowDays: 10, ShortArticleThreshold: 80,
		},
		Related: config.Related{MaxResults: 15, MinScore: 0.6},
		Paths:   config.Paths{LogPath: t.TempDir(), OutputPath: t.TempDir()},
	}
}

// longStemmed repeats tok enough times to clear the short-article threshold.
func longStemmed(tok string) string {
	return strings.TrimSpace(strings.Repeat(tok+" ", 30))
}

func mkArticle(id, tok string) core.Article {
	return core.Article{
		ID:             id,
		StemmedTitle:   longStemmed(tok),
		StemmedContent: longStemmed(tok),
		Title:          "title-" + id,
		Content:        "Something happened. More soon.",
		PublishTime:    time.Date(2026, 7, 29, 6, 0, 0, 0, time.UTC),
		CrawlTime:      time.Date(2026, 7, 29, 7, 0, 0, 0, time.UTC),
	}
}

var (
	runStart = time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	runEnd   = time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
)

func TestRunEmptyWindowWritesLogAndSucceeds(t *testing.T) {
	cfg := testConfig(t)
	events := &fakeEventStore{}
	eng, err := New(&fakeArticleStore{}, events, fakeTable{}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := eng.Run(context.Background(), runStart, runEnd)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NNews != 0 || res.NEvents != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if len(events.saved) != 0 {
		t.Errorf("expected no events written, got %d", len(events.saved))
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogPath, "log.json")); err != nil {
		t.Errorf("expected log.json to be written: %v", err)
	}
	prefix := core.CreateEventID(core.FormatTime(runStart))
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogPath, "log_"+prefix+".json")); err != nil {
		t.Errorf("expected per-run log file to be written: %v", err)
	}
}

func TestRunClustersSimilarArticlesIntoOneEvent(t *testing.T) {
	articles := []core.Article{mkArticle("a1", "alpha"), mkArticle("a2", "alpha"), mkArticle("a3", "alpha")}
	byID := make(map[string]core.Article)
	for _, a := range articles {
		byID[a.ID] = a
	}
	events := &fakeEventStore{}
	eng, err := New(&fakeArticleStore{window: articles, byID: byID}, events, fakeTable{}, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := eng.Run(context.Background(), runStart, runEnd)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NNews != 3 {
		t.Errorf("NNews = %d, want 3", res.NNews)
	}
	if res.NEvents != 1 {
		t.Fatalf("NEvents = %d, want 1", res.NEvents)
	}
	for _, e := range events.saved {
		if e.Count != 3 {
			t.Errorf("Count = %d, want 3", e.Count)
		}
		if e.Updated != core.FormatTime(runStart) {
			t.Errorf("Updated = %q, want run start time", e.Updated)
		}
	}
}

func TestRunMergesIntoHistoryAndSkipsUntouchedEvents(t *testing.T) {
	// History holds two events: one aligned with the incoming article
	// (should absorb it and be rewritten under its own id) and one
	// orthogonal (untouched, must not be rewritten).
	byID := map[string]core.Article{
		"h1": mkArticle("h1", "alpha"),
		"h2": mkArticle("h2", "beta"),
	}
	incoming := mkArticle("n1", "alpha")
	byID["n1"] = incoming

	events := &fakeEventStore{recent: []core.Event{
		{ID: "hist-alpha", Articles: []core.ArticleRef{{ID: "h1"}}, Father: "-1"},
		{ID: "hist-beta", Articles: []core.ArticleRef{{ID: "h2"}}, Father: "-1"},
	}}
	eng, err := New(&fakeArticleStore{window: []core.Article{incoming}, byID: byID}, events, fakeTable{}, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := eng.Run(context.Background(), runStart, runEnd); err != nil {
		t.Fatalf("Run: %v", err)
	}

	merged, ok := events.saved["hist-alpha"]
	if !ok {
		t.Fatal("expected hist-alpha to be rewritten after absorbing the new article")
	}
	if merged.Count != 2 {
		t.Errorf("hist-alpha Count = %d, want 2", merged.Count)
	}
	if _, ok := events.saved["hist-beta"]; ok {
		t.Error("untouched historical event hist-beta must not be rewritten")
	}
	if len(events.saved) != 1 {
		t.Errorf("expected exactly 1 write, got %d", len(events.saved))
	}
}

func TestNewRejectsNilCollaborators(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(nil, &fakeEventStore{}, fakeTable{}, cfg); err == nil {
		t.Error("expected error for nil article store")
	}
	if _, err := New(&fakeArticleStore{}, &fakeEventStore{}, nil, cfg); err == nil {
		t.Error("expected error for nil embedding table")
	}
}
