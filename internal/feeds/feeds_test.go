package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventpulse/eventpulse/internal/core"
)

type fakeWriter struct {
	saved []*core.Article
}

func (f *fakeWriter) SaveArticle(ctx context.Context, a *core.Article) error {
	f.saved = append(f.saved, a)
	return nil
}

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Sample Wire</title>
    <item>
      <title>Storm Hits Coast</title>
      <link>https://example.com/storm</link>
      <description>&lt;p&gt;A storm made landfall overnight.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
      <category>weather</category>
    </item>
    <item>
      <title>Second Story</title>
      <link>https://example.com/second</link>
      <description>Plain text body.</description>
    </item>
  </channel>
</rss>`

func TestFetchAllStoresArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	writer := &fakeWriter{}
	fetcher := NewFetcher(writer)

	res := fetcher.FetchAll(context.Background(), []string{srv.URL})
	if res.FeedsFetched != 1 {
		t.Fatalf("expected 1 feed fetched, got %d", res.FeedsFetched)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.ArticlesStored != 2 {
		t.Fatalf("expected 2 articles stored, got %d", res.ArticlesStored)
	}
	if len(writer.saved) != 2 {
		t.Fatalf("expected 2 saved articles, got %d", len(writer.saved))
	}

	first := writer.saved[0]
	if first.Title != "Storm Hits Coast" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.StemmedTitle != "storm hits coast" {
		t.Errorf("unexpected stemmed title: %q", first.StemmedTitle)
	}
	if first.Category != "weather" {
		t.Errorf("unexpected category: %q", first.Category)
	}
	if first.Publisher != "Sample Wire" {
		t.Errorf("unexpected publisher: %q", first.Publisher)
	}
}

func TestFetchAllDedupesByLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	writer := &fakeWriter{}
	fetcher := NewFetcher(writer)

	fetcher.FetchAll(context.Background(), []string{srv.URL})
	res := fetcher.FetchAll(context.Background(), []string{srv.URL})

	if res.ArticlesStored != 0 {
		t.Fatalf("expected second fetch to store nothing new, got %d", res.ArticlesStored)
	}
}

func TestFetchAllSkipsFailingFeedsButContinues(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer okSrv.Close()

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badSrv.Close()

	writer := &fakeWriter{}
	fetcher := NewFetcher(writer)

	res := fetcher.FetchAll(context.Background(), []string{badSrv.URL, okSrv.URL})
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(res.Errors), res.Errors)
	}
	if res.ArticlesStored != 2 {
		t.Fatalf("expected the good feed to still store 2 articles, got %d", res.ArticlesStored)
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello <b>World</b></p>")
	if got != "Hello World" {
		t.Errorf("stripHTML() = %q, want %q", got, "Hello World")
	}
	if got := stripHTML("no markup here"); got != "no markup here" {
		t.Errorf("stripHTML() on plain text = %q", got)
	}
}

func TestNormalize(t *testing.T) {
	got := normalize("Storm, Hits!! the Coast.")
	want := "storm hits the coast"
	if got != want {
		t.Errorf("normalize() = %q, want %q", got, want)
	}
}
