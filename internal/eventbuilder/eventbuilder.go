// Package eventbuilder assembles the persisted Event record for every
// cluster currently held in the run's cluster store: keynews selection,
// per-article scoring, decay-weighted keyword/entity aggregation, related
// events, and the write-skip policy for untouched historical events.
package eventbuilder

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/eventpulse/eventpulse/internal/clusterstore"
	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/vectormath"
)

// Options configures the tunable parts of event assembly.
type Options struct {
	RelatedMaxResults int     // default 15
	RelatedMinScore   float64 // default 0.6, strict >
	TopKTerms         int     // default 20, applies to keywords/when/where/who/NER
	LabelWords        int     // default 5
	Decay             float64 // default 0.99
}

// DefaultOptions returns the thresholds the engine ships with.
func DefaultOptions() Options {
	return Options{RelatedMaxResults: 15, RelatedMinScore: 0.6, TopKTerms: 20, LabelWords: 5, Decay: 0.99}
}

// BuildAll builds one Event per cluster in store, honouring the write-skip
// policy: a cluster loaded from history that received no new members this
// run (store.IsUpdated returns false) is omitted from the result entirely,
// since nothing about it changed.
func BuildAll(store *clusterstore.Store, articles map[string]core.Article, existing map[string]*core.Event, nowStr, startTimeStr string, opts Options) []*core.Event {
	centroids := store.Centroids()
	ids := store.IDs()
	sort.Strings(ids)

	out := make([]*core.Event, 0, len(ids))
	for _, id := range ids {
		if !store.IsUpdated(id) {
			continue
		}
		c, ok := store.Get(id)
		if !ok || len(c.Vectors) == 0 {
			continue
		}
		out = append(out, build(store, c, articles, existing[id], centroids, nowStr, startTimeStr, opts))
	}
	return out
}

func build(store *clusterstore.Store, c *clusterstore.Cluster, articles map[string]core.Article, prior *core.Event, centroids map[string]vectormath.Vector, nowStr, startTimeStr string, opts Options) *core.Event {
	// sim[i] is member i's cosine similarity to the cluster centroid; also
	// doubles as each article's persisted per-member score.
	sims := make([]float64, len(c.Vectors))
	for i, v := range c.Vectors {
		sims[i] = vectormath.Cosine(v, c.Centroid)
	}

	order := make([]int, len(c.Vectors))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if sims[order[a]] != sims[order[b]] {
			return sims[order[a]] > sims[order[b]]
		}
		return order[a] < order[b]
	})

	event := &core.Event{ID: c.ID, Updated: startTimeStr}
	if prior != nil {
		event.Created = prior.Created
		event.Extra = prior.Extra
	} else {
		event.Created = nowStr
	}

	articleRefs := make([]core.ArticleRef, 0, len(c.ArticleIDs))
	var keyIdx int
	bestSim := -2.0
	for i, id := range c.ArticleIDs {
		a, ok := articles[id]
		if !ok {
			// Referenced article no longer resolves: a data inconsistency
			// for this single member, not fatal to the event as a whole.
			continue
		}
		ref := core.ArticleRef{
			ID:          a.ID,
			Publisher:   a.Publisher,
			Category:    a.Category,
			Title:       a.Title,
			URL:         a.URL,
			PublishTime: core.FormatTime(a.PublishTime),
			Image:       a.Image,
			Score:       sims[i],
		}
		articleRefs = append(articleRefs, ref)
		if sims[i] > bestSim {
			bestSim = sims[i]
			keyIdx = i
		}
	}
	event.Articles = articleRefs
	event.Count = len(articleRefs)

	if keyArticle, ok := articles[c.ArticleIDs[keyIdx]]; ok {
		event.KeyNews = core.KeyNews{
			ArticleRef: core.ArticleRef{
				ID:          keyArticle.ID,
				Publisher:   keyArticle.Publisher,
				Category:    keyArticle.Category,
				Title:       keyArticle.Title,
				URL:         keyArticle.URL,
				PublishTime: core.FormatTime(keyArticle.PublishTime),
				Image:       keyArticle.Image,
				Score:       bestSim,
			},
			Abstract: abstract(keyArticle.Content),
		}
	}

	if parent, ok := store.Parent(c.ID); ok {
		event.Father = parent
	} else {
		event.Father = "-1"
	}
	if children := store.ChildrenOf(c.ID); len(children) > 0 {
		childList := make([]string, 0, len(children))
		for child := range children {
			childList = append(childList, child)
		}
		sort.Strings(childList)
		event.Childrens = childList
		event.Closed = true
		event.ClosedAt = startTimeStr
	}

	event.RelatedEvents = relatedEvents(c.ID, c.Centroid, centroids, opts)

	kw, when, where, who, persons, locations, orgs := aggregateDecayed(order, c.ArticleIDs, articles, opts)
	event.Keywords = kw
	event.When = when
	event.Where = where
	event.Who = who
	event.Persons = persons
	event.Locations = locations
	event.Organizations = orgs
	event.Label = label(kw, opts.LabelWords)

	return event
}

func relatedEvents(selfID string, centroid vectormath.Vector, centroids map[string]vectormath.Vector, opts Options) []core.RelatedEvent {
	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, 0, len(centroids))
	for id, other := range centroids {
		if id == selfID {
			continue
		}
		scores = append(scores, scored{id: id, score: vectormath.Cosine(centroid, other)})
	}
	sort.Slice(scores, func(a, b int) bool {
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		return scores[a].id < scores[b].id
	})

	max := opts.RelatedMaxResults
	if max <= 0 {
		max = 15
	}
	out := make([]core.RelatedEvent, 0, max)
	for _, s := range scores {
		if len(out) >= max {
			break
		}
		if s.score <= opts.RelatedMinScore {
			continue
		}
		out = append(out, core.RelatedEvent{ID: s.id, Score: s.score})
	}
	return out
}

// aggregateDecayed visits members in descending similarity-to-centroid
// order and aggregates their extracted terms. The scalar term lists
// (keywords/when/where/who) scale the i-th member's scores by opts.Decay^i;
// the NER mention lists (persons/locations/organizations) sum raw counts
// unweighted, keeping the first-seen linkedURL per mention.
func aggregateDecayed(order []int, articleIDs []string, articles map[string]core.Article, opts Options) (kw, when, where, who []core.NamedScore, persons, locations, orgs []core.NERMention) {
	keywordAcc := make(map[string]float64)
	whenAcc := make(map[string]float64)
	whereAcc := make(map[string]float64)
	whoAcc := make(map[string]float64)

	personsAcc := make(map[string]*nerAgg)
	locationsAcc := make(map[string]*nerAgg)
	orgsAcc := make(map[string]*nerAgg)

	weight := 1.0
	for _, idx := range order {
		a, ok := articles[articleIDs[idx]]
		if !ok {
			continue
		}
		accumulateScores(a.Keywords, keywordAcc, weight)
		accumulateScores(a.When, whenAcc, weight)
		accumulateScores(a.Where, whereAcc, weight)
		accumulateScores(a.Who, whoAcc, weight)
		accumulateNER(a.Persons, personsAcc)
		accumulateNER(a.Locations, locationsAcc)
		accumulateNER(a.Organizations, orgsAcc)
		weight *= opts.Decay
	}

	k := opts.TopKTerms
	if k <= 0 {
		k = 20
	}
	kw = topScores(keywordAcc, k)
	when = topScores(whenAcc, k)
	where = topScores(whereAcc, k)
	who = topScores(whoAcc, k)
	persons = topNER(personsAcc, k)
	locations = topNER(locationsAcc, k)
	orgs = topNER(orgsAcc, k)
	return
}

func accumulateScores(items []core.ExtractedItem, acc map[string]float64, weight float64) {
	for _, it := range items {
		acc[it.Word] += it.Score * weight
	}
}

type nerAgg struct {
	count     float64
	linkedURL string
}

func accumulateNER(items []core.RawMention, acc map[string]*nerAgg) {
	for _, it := range items {
		if existing, ok := acc[it.Mention]; ok {
			existing.count += float64(it.Count)
		} else {
			acc[it.Mention] = &nerAgg{count: float64(it.Count), linkedURL: it.LinkedURL}
		}
	}
}

func topScores(acc map[string]float64, k int) []core.NamedScore {
	if len(acc) == 0 {
		return nil
	}
	type pair struct {
		word  string
		score float64
	}
	pairs := make([]pair, 0, len(acc))
	for w, s := range acc {
		pairs = append(pairs, pair{w, s})
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].score != pairs[b].score {
			return pairs[a].score > pairs[b].score
		}
		return pairs[a].word < pairs[b].word
	})
	if len(pairs) > k {
		pairs = pairs[:k]
	}

	var sumSq float64
	for _, p := range pairs {
		sumSq += p.score * p.score
	}
	norm := math.Sqrt(sumSq)

	out := make([]core.NamedScore, len(pairs))
	for i, p := range pairs {
		score := p.score
		if norm > 0 {
			score /= norm
		}
		out[i] = core.NamedScore{Word: p.word, Score: fmt.Sprintf("%.2f", score)}
	}
	return out
}

func topNER(acc map[string]*nerAgg, k int) []core.NERMention {
	if len(acc) == 0 {
		return nil
	}
	type pair struct {
		mention string
		agg     *nerAgg
	}
	pairs := make([]pair, 0, len(acc))
	for m, a := range acc {
		pairs = append(pairs, pair{m, a})
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].agg.count != pairs[b].agg.count {
			return pairs[a].agg.count > pairs[b].agg.count
		}
		return pairs[a].mention < pairs[b].mention
	})
	if len(pairs) > k {
		pairs = pairs[:k]
	}

	var sumSq float64
	for _, p := range pairs {
		sumSq += p.agg.count * p.agg.count
	}
	norm := math.Sqrt(sumSq)

	out := make([]core.NERMention, len(pairs))
	for i, p := range pairs {
		normalized := p.agg.count
		if norm > 0 {
			normalized /= norm
		}
		out[i] = core.NERMention{
			Mention:   p.mention,
			Count:     fmt.Sprintf("%.2f", p.agg.count),
			Score:     fmt.Sprintf("%.2f", normalized),
			LinkedURL: p.agg.linkedURL,
		}
	}
	return out
}

func label(keywords []core.NamedScore, n int) string {
	if n <= 0 {
		n = 5
	}
	if n > len(keywords) {
		n = len(keywords)
	}
	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = keywords[i].Word
	}
	return strings.Join(words, " ")
}

// abstract returns a short extract of content, splitting on the first
// sentence-ending punctuation within a bounded window, or truncating if
// none is found.
func abstract(content string) string {
	const maxLen = 160
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	limit := len(content)
	if limit > maxLen {
		limit = maxLen
	}
	window := content[:limit]
	for _, sep := range []string{"。", ". ", "! ", "? "} {
		if idx := strings.Index(window, sep); idx != -1 {
			return window[:idx+len(sep)]
		}
	}
	if len(content) > maxLen {
		return window + "..."
	}
	return window
}
