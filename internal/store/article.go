package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eventpulse/eventpulse/internal/core"
)

// ArticleRepo implements core.ArticleStore and core.ArticleWriter against
// the articles table.
type ArticleRepo struct {
	db *sql.DB
}

const articleColumns = `id, stemmed_title, stemmed_content, content, title, publisher, category,
	url, image, publish_time, crawl_time, keywords, when_items, where_items, who_items,
	persons, locations, organizations`

// SaveArticle upserts an article by id. Used by ingestion producers
// (internal/feeds), never by an engine run.
func (r *ArticleRepo) SaveArticle(ctx context.Context, a *core.Article) error {
	keywords, err := marshalItems(a.Keywords)
	if err != nil {
		return fmt.Errorf("%w: marshaling keywords: %v", core.ErrDataInconsistency, err)
	}
	when, err := marshalItems(a.When)
	if err != nil {
		return fmt.Errorf("%w: marshaling when: %v", core.ErrDataInconsistency, err)
	}
	where, err := marshalItems(a.Where)
	if err != nil {
		return fmt.Errorf("%w: marshaling where: %v", core.ErrDataInconsistency, err)
	}
	who, err := marshalItems(a.Who)
	if err != nil {
		return fmt.Errorf("%w: marshaling who: %v", core.ErrDataInconsistency, err)
	}
	persons, err := marshalItems(a.Persons)
	if err != nil {
		return fmt.Errorf("%w: marshaling persons: %v", core.ErrDataInconsistency, err)
	}
	locations, err := marshalItems(a.Locations)
	if err != nil {
		return fmt.Errorf("%w: marshaling locations: %v", core.ErrDataInconsistency, err)
	}
	orgs, err := marshalItems(a.Organizations)
	if err != nil {
		return fmt.Errorf("%w: marshaling organizations: %v", core.ErrDataInconsistency, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			stemmed_title=excluded.stemmed_title, stemmed_content=excluded.stemmed_content,
			content=excluded.content, title=excluded.title, publisher=excluded.publisher,
			category=excluded.category, url=excluded.url, image=excluded.image,
			publish_time=excluded.publish_time, crawl_time=excluded.crawl_time,
			keywords=excluded.keywords, when_items=excluded.when_items,
			where_items=excluded.where_items, who_items=excluded.who_items,
			persons=excluded.persons, locations=excluded.locations,
			organizations=excluded.organizations
	`,
		a.ID, a.StemmedTitle, a.StemmedContent, a.Content, a.Title, a.Publisher, a.Category,
		a.URL, a.Image, a.PublishTime, a.CrawlTime, keywords, when, where, who,
		persons, locations, orgs,
	)
	if err != nil {
		return fmt.Errorf("%w: saving article %s: %v", core.ErrStoreUnavailable, a.ID, err)
	}
	return nil
}

// QueryOneByID fetches a single article, or (nil, nil) if it doesn't exist.
func (r *ArticleRepo) QueryOneByID(ctx context.Context, id string) (*core.Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying article %s: %v", core.ErrStoreUnavailable, id, err)
	}
	return a, nil
}

// QueryManyByTime returns every article crawled in (start, end].
func (r *ArticleRepo) QueryManyByTime(ctx context.Context, start, end time.Time) (core.ArticleCursor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+` FROM articles
		WHERE crawl_time > ? AND crawl_time <= ?
		ORDER BY crawl_time ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: querying articles by time: %v", core.ErrStoreUnavailable, err)
	}
	return &articleCursor{rows: rows}, nil
}

type articleCursor struct {
	rows *sql.Rows
}

func (c *articleCursor) Next(ctx context.Context) (*core.Article, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: iterating article cursor: %v", core.ErrStoreUnavailable, err)
		}
		return nil, nil
	}
	return scanArticle(c.rows)
}

func (c *articleCursor) Close() error { return c.rows.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*core.Article, error) {
	var a core.Article
	var content, title, publisher, category, url, image sql.NullString
	var keywords, when, where, who, persons, locations, orgs sql.NullString

	err := row.Scan(
		&a.ID, &a.StemmedTitle, &a.StemmedContent, &content, &title, &publisher, &category,
		&url, &image, &a.PublishTime, &a.CrawlTime, &keywords, &when, &where, &who,
		&persons, &locations, &orgs,
	)
	if err != nil {
		return nil, err
	}
	a.Content = content.String
	a.Title = title.String
	a.Publisher = publisher.String
	a.Category = category.String
	a.URL = url.String
	a.Image = image.String

	if a.Keywords, err = unmarshalItems[core.ExtractedItem](keywords); err != nil {
		return nil, fmt.Errorf("%w: decoding keywords for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	if a.When, err = unmarshalItems[core.ExtractedItem](when); err != nil {
		return nil, fmt.Errorf("%w: decoding when for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	if a.Where, err = unmarshalItems[core.ExtractedItem](where); err != nil {
		return nil, fmt.Errorf("%w: decoding where for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	if a.Who, err = unmarshalItems[core.ExtractedItem](who); err != nil {
		return nil, fmt.Errorf("%w: decoding who for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	if a.Persons, err = unmarshalItems[core.RawMention](persons); err != nil {
		return nil, fmt.Errorf("%w: decoding persons for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	if a.Locations, err = unmarshalItems[core.RawMention](locations); err != nil {
		return nil, fmt.Errorf("%w: decoding locations for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	if a.Organizations, err = unmarshalItems[core.RawMention](orgs); err != nil {
		return nil, fmt.Errorf("%w: decoding organizations for article %s: %v", core.ErrDataInconsistency, a.ID, err)
	}
	return &a, nil
}
