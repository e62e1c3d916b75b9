package vectorizer

import (
	"context"
	"math"
	"testing"

	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

type fakeTable struct {
	dim int
	m   map[string]vectormath.Vector
}

func (f fakeTable) Lookup(tok string) (vectormath.Vector, bool) {
	v, ok := f.m[tok]
	return v, ok
}
func (f fakeTable) Dim() int { return f.dim }

func TestVectorizeSingleDividesByTotalTokenCount(t *testing.T) {
	table := fakeTable{dim: 2, m: map[string]vectormath.Vector{
		"market": {2, 0},
		"rally":  {0, 2},
	}}
	// 3 tokens total, one unknown ("today"); sum of known = (2,2), divided by 3.
	got := VectorizeSingle(table, "market rally today")
	want := vectormath.Vector{2.0 / 3, 2.0 / 3}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("VectorizeSingle()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVectorizeSingleAllUnknown(t *testing.T) {
	table := fakeTable{dim: 2, m: map[string]vectormath.Vector{}}
	got := VectorizeSingle(table, "zzz yyy")
	for i, x := range got {
		if x != 0 {
			t.Errorf("VectorizeSingle()[%d] = %v, want 0", i, x)
		}
	}
}

func TestVectorizeSkipsShortArticles(t *testing.T) {
	table := fakeTable{dim: 2, m: map[string]vectormath.Vector{"a": {1, 1}}}
	articles := []core.Article{
		{ID: "short", StemmedTitle: "a", StemmedContent: "b"},
		{ID: "long", StemmedTitle: "a a a a a a a a a a a a a a a a a a a a", StemmedContent: "a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a a"},
	}
	got := Vectorize(context.Background(), table, articles, ShortArticleThreshold)
	if len(got) != 1 || got[0].ArticleID != "long" {
		t.Fatalf("Vectorize() = %+v, want only 'long'", got)
	}
}

func TestVectorizePreservesOrder(t *testing.T) {
	long := func(id string) core.Article {
		content := ""
		for i := 0; i < 100; i++ {
			content += "word "
		}
		return core.Article{ID: id, StemmedTitle: content, StemmedContent: content}
	}
	table := fakeTable{dim: 1, m: map[string]vectormath.Vector{"word": {1}}}
	articles := []core.Article{long("a"), long("b"), long("c")}
	got := Vectorize(context.Background(), table, articles, ShortArticleThreshold)
	if len(got) != 3 || got[0].ArticleID != "a" || got[1].ArticleID != "b" || got[2].ArticleID != "c" {
		t.Fatalf("Vectorize() order = %+v", got)
	}
}
