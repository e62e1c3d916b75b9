// Package feeds is an optional article producer: an RSS/Atom fetcher that
// populates a core.ArticleWriter ahead of a clustering run. It sits strictly
// outside the clustering core — nothing in internal/engine imports this
// package; only cmd/eventpulse's ingest subcommand drives it.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/eventpulse/eventpulse/internal/core"
	"github.com/eventpulse/eventpulse/internal/logger"
)

// Fetcher pulls articles from a fixed list of feed URLs and writes new ones
// (deduplicated by URL) into an ArticleWriter.
type Fetcher struct {
	parser *gofeed.Parser
	client *http.Client
	store  core.ArticleWriter
	seen   map[string]bool // url -> already stored this run
}

// NewFetcher builds a Fetcher that writes into store.
func NewFetcher(store core.ArticleWriter) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "eventpulse/1.0"
	return &Fetcher{
		parser: parser,
		client: &http.Client{Timeout: 30 * time.Second},
		store:  store,
		seen:   make(map[string]bool),
	}
}

// Result summarises one ingest run.
type Result struct {
	FeedsFetched   int
	ArticlesStored int
	Errors         []error
}

// FetchAll fetches every URL in urls and stores the resulting articles.
// A feed that fails to fetch or parse is logged and skipped; it never aborts
// the remaining feeds.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) Result {
	var res Result
	for _, url := range urls {
		feedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		n, err := f.fetchOne(feedCtx, url)
		cancel()
		res.FeedsFetched++
		res.ArticlesStored += n
		if err != nil {
			logger.Warn("feed fetch failed", "url", url, "error", err)
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", url, err))
		}
	}
	return res
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "eventpulse/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading body: %w", err)
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return 0, fmt.Errorf("parsing feed: %w", err)
	}

	stored := 0
	for _, item := range parsed.Items {
		if item.Link == "" || f.seen[item.Link] {
			continue
		}
		article := itemToArticle(parsed, item)
		if err := f.store.SaveArticle(ctx, article); err != nil {
			logger.Warn("storing article failed", "url", item.Link, "error", err)
			continue
		}
		f.seen[item.Link] = true
		stored++
	}
	return stored, nil
}

func itemToArticle(feed *gofeed.Feed, item *gofeed.Item) *core.Article {
	publish := time.Now().UTC()
	if item.PublishedParsed != nil {
		publish = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		publish = item.UpdatedParsed.UTC()
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	plainContent := stripHTML(content)

	publisher := feed.Title

	image := ""
	if item.Image != nil {
		image = item.Image.URL
	} else if feed.Image != nil {
		image = feed.Image.URL
	}

	return &core.Article{
		ID:             uuid.NewString(),
		StemmedTitle:   normalize(item.Title),
		StemmedContent: normalize(plainContent),
		Content:        plainContent,
		Title:          item.Title,
		Publisher:      publisher,
		Category:       firstOrEmpty(item.Categories),
		URL:            item.Link,
		Image:          image,
		PublishTime:    publish,
		CrawlTime:      time.Now().UTC(),
	}
}

// stripHTML extracts plain text from an HTML fragment, for feeds that embed
// full article markup in <content:encoded>.
func stripHTML(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(doc.Text())
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]+`)

// normalize is a best-effort stand-in for the upstream NLP stemming pipeline
// the engine otherwise assumes has already run. It only lowercases and
// strips punctuation so locally ingested feeds still produce a usable
// stemmedTitle/stemmedContent pair; it is not a real stemmer.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}
