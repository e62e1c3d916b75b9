package core

import (
	"context"
	"time"
)

// ArticleCursor streams Article rows from an ArticleStore query without
// forcing the whole window into memory at once.
type ArticleCursor interface {
	Next(ctx context.Context) (*Article, error) // returns nil, nil at end
	Close() error
}

// EventCursor streams Event rows from an EventStore query.
type EventCursor interface {
	Next(ctx context.Context) (*Event, error) // returns nil, nil at end
	Close() error
}

// ArticleStore is the read side an engine run needs against whatever holds
// ingested articles.
type ArticleStore interface {
	// QueryManyByTime returns every article crawled in (start, end].
	QueryManyByTime(ctx context.Context, start, end time.Time) (ArticleCursor, error)
	// QueryOneByID fetches a single article, used when re-materialising an
	// event's member list from history.
	QueryOneByID(ctx context.Context, id string) (*Article, error)
}

// EventStore is the read/write side an engine run needs against wherever
// events are persisted.
type EventStore interface {
	// QueryRecentByTime returns non-closed events updated within
	// (t-window, t]. As a side effect, in the same statement or
	// transaction that serves the query, it flips closed=true on events
	// whose updated time is at or before t-window.
	QueryRecentByTime(ctx context.Context, t time.Time, window time.Duration) (EventCursor, error)
	// QueryOneByID fetches a single event by id, used to resolve related
	// event references.
	QueryOneByID(ctx context.Context, id string) (*Event, error)
	// SaveItem upserts an event record by id.
	SaveItem(ctx context.Context, event *Event) error
}

// ArticleWriter is the write side of article storage. It is never used by
// an engine run (articles are read-only from the engine's perspective); it
// exists for the ingestion producers that populate an ArticleStore ahead of
// a run (internal/feeds, operator backfills).
type ArticleWriter interface {
	// SaveArticle upserts an article by id: saving an id that already
	// exists overwrites that row. It does not deduplicate by URL.
	SaveArticle(ctx context.Context, article *Article) error
}
