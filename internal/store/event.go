package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eventpulse/eventpulse/internal/core"
)

// EventRepo implements core.EventStore against the events table.
type EventRepo struct {
	db *sql.DB
}

const eventColumns = `id, created, updated, closed, closed_at, count, label, keynews, articles,
	keywords, when_items, where_items, who_items, persons, locations, organizations,
	father, childrens, related_events, extra`

// QueryOneByID fetches a single event, or (nil, nil) if it doesn't exist.
func (r *EventRepo) QueryOneByID(ctx context.Context, id string) (*core.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying event %s: %v", core.ErrStoreUnavailable, id, err)
	}
	return e, nil
}

// QueryRecentByTime returns non-closed events updated within (t-window, t].
// As a side effect it flips closed=true (and stamps closed_at) on every
// event whose updated time falls at or before t-window; both fields are
// kept in sync on close.
func (r *EventRepo) QueryRecentByTime(ctx context.Context, t time.Time, window time.Duration) (core.EventCursor, error) {
	cutoff := core.FormatTime(t.Add(-window))
	upper := core.FormatTime(t)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning window-close transaction: %v", core.ErrStoreUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET closed = 1, closed_at = updated
		WHERE closed = 0 AND updated <= ?
	`, cutoff); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%w: closing stale events: %v", core.ErrStoreUnavailable, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE closed = 0 AND updated > ? AND updated <= ?
		ORDER BY id ASC
	`, cutoff, upper)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%w: querying recent events: %v", core.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: committing window-close transaction: %v", core.ErrStoreUnavailable, err)
	}

	return &eventCursor{rows: rows}, nil
}

// SaveItem upserts an event record by id.
func (r *EventRepo) SaveItem(ctx context.Context, e *core.Event) error {
	keynews, err := marshalItems([]core.KeyNews{e.KeyNews})
	if err != nil {
		return fmt.Errorf("%w: marshaling keynews: %v", core.ErrDataInconsistency, err)
	}
	articles, err := marshalItems(e.Articles)
	if err != nil {
		return fmt.Errorf("%w: marshaling articles: %v", core.ErrDataInconsistency, err)
	}
	keywords, err := marshalItems(e.Keywords)
	if err != nil {
		return fmt.Errorf("%w: marshaling keywords: %v", core.ErrDataInconsistency, err)
	}
	when, err := marshalItems(e.When)
	if err != nil {
		return fmt.Errorf("%w: marshaling when: %v", core.ErrDataInconsistency, err)
	}
	where, err := marshalItems(e.Where)
	if err != nil {
		return fmt.Errorf("%w: marshaling where: %v", core.ErrDataInconsistency, err)
	}
	who, err := marshalItems(e.Who)
	if err != nil {
		return fmt.Errorf("%w: marshaling who: %v", core.ErrDataInconsistency, err)
	}
	persons, err := marshalItems(e.Persons)
	if err != nil {
		return fmt.Errorf("%w: marshaling persons: %v", core.ErrDataInconsistency, err)
	}
	locations, err := marshalItems(e.Locations)
	if err != nil {
		return fmt.Errorf("%w: marshaling locations: %v", core.ErrDataInconsistency, err)
	}
	orgs, err := marshalItems(e.Organizations)
	if err != nil {
		return fmt.Errorf("%w: marshaling organizations: %v", core.ErrDataInconsistency, err)
	}
	childrens, err := marshalItems(e.Childrens)
	if err != nil {
		return fmt.Errorf("%w: marshaling childrens: %v", core.ErrDataInconsistency, err)
	}
	related, err := marshalItems(e.RelatedEvents)
	if err != nil {
		return fmt.Errorf("%w: marshaling relatedEvents: %v", core.ErrDataInconsistency, err)
	}
	extra, err := marshalExtra(e.Extra)
	if err != nil {
		return fmt.Errorf("%w: marshaling extra: %v", core.ErrDataInconsistency, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			created=excluded.created, updated=excluded.updated, closed=excluded.closed,
			closed_at=excluded.closed_at, count=excluded.count, label=excluded.label,
			keynews=excluded.keynews, articles=excluded.articles, keywords=excluded.keywords,
			when_items=excluded.when_items, where_items=excluded.where_items, who_items=excluded.who_items,
			persons=excluded.persons, locations=excluded.locations, organizations=excluded.organizations,
			father=excluded.father, childrens=excluded.childrens,
			related_events=excluded.related_events, extra=excluded.extra
	`,
		e.ID, e.Created, e.Updated, e.IsClosed(), e.ClosedAt, e.Count, e.Label,
		keynews, articles, keywords, when, where, who, persons, locations, orgs,
		e.Father, childrens, related, extra,
	)
	if err != nil {
		return fmt.Errorf("%w: saving event %s: %v", core.ErrStoreUnavailable, e.ID, err)
	}
	return nil
}

type eventCursor struct {
	rows *sql.Rows
}

func (c *eventCursor) Next(ctx context.Context) (*core.Event, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: iterating event cursor: %v", core.ErrStoreUnavailable, err)
		}
		return nil, nil
	}
	return scanEvent(c.rows)
}

func (c *eventCursor) Close() error { return c.rows.Close() }

func scanEvent(row rowScanner) (*core.Event, error) {
	var e core.Event
	var created, updated, label, father, closedAt sql.NullString
	var keynews, articles, keywords, when, where, who sql.NullString
	var persons, locations, orgs, childrens, related, extra sql.NullString
	var closed bool

	err := row.Scan(
		&e.ID, &created, &updated, &closed, &closedAt, &e.Count, &label,
		&keynews, &articles, &keywords, &when, &where, &who,
		&persons, &locations, &orgs, &father, &childrens, &related, &extra,
	)
	if err != nil {
		return nil, err
	}
	e.Created = created.String
	e.Updated = updated.String
	e.Label = label.String
	e.Father = father.String
	e.Closed = closed
	e.ClosedAt = closedAt.String

	keynewsList, err := unmarshalItems[core.KeyNews](keynews)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding keynews for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if len(keynewsList) > 0 {
		e.KeyNews = keynewsList[0]
	}
	if e.Articles, err = unmarshalItems[core.ArticleRef](articles); err != nil {
		return nil, fmt.Errorf("%w: decoding articles for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Keywords, err = unmarshalItems[core.NamedScore](keywords); err != nil {
		return nil, fmt.Errorf("%w: decoding keywords for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.When, err = unmarshalItems[core.NamedScore](when); err != nil {
		return nil, fmt.Errorf("%w: decoding when for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Where, err = unmarshalItems[core.NamedScore](where); err != nil {
		return nil, fmt.Errorf("%w: decoding where for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Who, err = unmarshalItems[core.NamedScore](who); err != nil {
		return nil, fmt.Errorf("%w: decoding who for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Persons, err = unmarshalItems[core.NERMention](persons); err != nil {
		return nil, fmt.Errorf("%w: decoding persons for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Locations, err = unmarshalItems[core.NERMention](locations); err != nil {
		return nil, fmt.Errorf("%w: decoding locations for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Organizations, err = unmarshalItems[core.NERMention](orgs); err != nil {
		return nil, fmt.Errorf("%w: decoding organizations for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Childrens, err = unmarshalItems[string](childrens); err != nil {
		return nil, fmt.Errorf("%w: decoding childrens for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.RelatedEvents, err = unmarshalItems[core.RelatedEvent](related); err != nil {
		return nil, fmt.Errorf("%w: decoding relatedEvents for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if e.Extra, err = unmarshalExtra(extra); err != nil {
		return nil, fmt.Errorf("%w: decoding extra for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	return &e, nil
}
