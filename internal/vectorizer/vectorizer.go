// Package vectorizer turns stemmed article text into fixed-dimension
// vectors by averaging token embeddings.
package vectorizer

import (
	"context"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Table looks up a token's embedding vector.
type Table interface {
	Lookup(token string) (vectormath.Vector, bool)
	Dim() int
}

// Vectorized pairs an article id with its computed vector, preserving the
// order articles were handed in.
type Vectorized struct {
	ArticleID string
	Vector    vectormath.Vector
}

// ShortArticleThreshold is the stemmed-text character length at or below
// which an article is excluded from vectorisation entirely (too little
// signal to cluster on reliably).
const ShortArticleThreshold = 80

// VectorizeSingle builds the vector for one piece of stemmed text: sum the
// embedding of every recognised token, then divide by the TOTAL token
// count, including tokens with no embedding. Out-of-vocabulary-heavy text
// is thereby dampened in magnitude rather than excluded, which is
// intentional: it reduces that article's pull on any centroid it joins
// without silently dropping it from clustering.
func VectorizeSingle(table Table, text string) vectormath.Vector {
	dim := table.Dim()
	sum := make(vectormath.Vector, dim)
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return sum
	}
	for _, tok := range tokens {
		if v, ok := table.Lookup(tok); ok {
			for i := 0; i < dim && i < len(v); i++ {
				sum[i] += v[i]
			}
		}
	}
	n := float64(len(tokens))
	for i := range sum {
		sum[i] /= n
	}
	return sum
}

// Vectorize runs VectorizeSingle over a batch of articles in order,
// skipping any whose stemmed text length is at or below threshold
// (ShortArticleThreshold when threshold <= 0), and reporting coarse
// progress as it goes.
func Vectorize(ctx context.Context, table Table, articles []core.Article, threshold int) []Vectorized {
	if threshold <= 0 {
		threshold = ShortArticleThreshold
	}
	out := make([]Vectorized, 0, len(articles))
	bar := progressbar.NewOptions(len(articles),
		progressbar.OptionSetDescription("vectorizing articles"),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	for _, a := range articles {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		text := a.StemmedText()
		if len(text) > threshold {
			out = append(out, Vectorized{ArticleID: a.ID, Vector: VectorizeSingle(table, text)})
		}
		_ = bar.Add(1)
	}
	return out
}
