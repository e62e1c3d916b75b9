package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eventpulse/eventpulse/internal/core"
)

// EventRepo implements core.EventStore against Postgres.
type EventRepo struct {
	db *sql.DB
}

const eventColumns = `id, created, updated, closed, closed_at, count, label, keynews, articles,
	keywords, when_items, where_items, who_items, persons, locations, organizations,
	father, childrens, related_events, extra`

// QueryOneByID fetches a single event, or (nil, nil) if it doesn't exist.
func (r *EventRepo) QueryOneByID(ctx context.Context, id string) (*core.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
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
// event whose updated time falls at or before t-window, matching
// internal/store's EventRepo behavior.
func (r *EventRepo) QueryRecentByTime(ctx context.Context, t time.Time, window time.Duration) (core.EventCursor, error) {
	cutoff := core.FormatTime(t.Add(-window))
	upper := core.FormatTime(t)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning window-close transaction: %v", core.ErrStoreUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET closed = TRUE, closed_at = updated
		WHERE closed = FALSE AND updated <= $1
	`, cutoff); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%w: closing stale events: %v", core.ErrStoreUnavailable, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE closed = FALSE AND updated > $1 AND updated <= $2
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
	keynews, err := json.Marshal([]core.KeyNews{e.KeyNews})
	if err != nil {
		return fmt.Errorf("%w: marshaling keynews: %v", core.ErrDataInconsistency, err)
	}
	articles, err := json.Marshal(orEmpty(e.Articles))
	if err != nil {
		return fmt.Errorf("%w: marshaling articles: %v", core.ErrDataInconsistency, err)
	}
	keywords, err := json.Marshal(orEmpty(e.Keywords))
	if err != nil {
		return fmt.Errorf("%w: marshaling keywords: %v", core.ErrDataInconsistency, err)
	}
	when, err := json.Marshal(orEmpty(e.When))
	if err != nil {
		return fmt.Errorf("%w: marshaling when: %v", core.ErrDataInconsistency, err)
	}
	where, err := json.Marshal(orEmpty(e.Where))
	if err != nil {
		return fmt.Errorf("%w: marshaling where: %v", core.ErrDataInconsistency, err)
	}
	who, err := json.Marshal(orEmpty(e.Who))
	if err != nil {
		return fmt.Errorf("%w: marshaling who: %v", core.ErrDataInconsistency, err)
	}
	persons, err := json.Marshal(orEmpty(e.Persons))
	if err != nil {
		return fmt.Errorf("%w: marshaling persons: %v", core.ErrDataInconsistency, err)
	}
	locations, err := json.Marshal(orEmpty(e.Locations))
	if err != nil {
		return fmt.Errorf("%w: marshaling locations: %v", core.ErrDataInconsistency, err)
	}
	orgs, err := json.Marshal(orEmpty(e.Organizations))
	if err != nil {
		return fmt.Errorf("%w: marshaling organizations: %v", core.ErrDataInconsistency, err)
	}
	childrens, err := json.Marshal(orEmpty(e.Childrens))
	if err != nil {
		return fmt.Errorf("%w: marshaling childrens: %v", core.ErrDataInconsistency, err)
	}
	related, err := json.Marshal(orEmpty(e.RelatedEvents))
	if err != nil {
		return fmt.Errorf("%w: marshaling relatedEvents: %v", core.ErrDataInconsistency, err)
	}
	extra := e.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("%w: marshaling extra: %v", core.ErrDataInconsistency, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		ON CONFLICT (id) DO UPDATE SET
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
		e.Father, childrens, related, extraJSON,
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
	var created, updated, label, father, closedAt string
	var keynews, articles, keywords, when, where, who []byte
	var persons, locations, orgs, childrens, related, extra []byte
	var closed bool

	err := row.Scan(
		&e.ID, &created, &updated, &closed, &closedAt, &e.Count, &label,
		&keynews, &articles, &keywords, &when, &where, &who,
		&persons, &locations, &orgs, &father, &childrens, &related, &extra,
	)
	if err != nil {
		return nil, err
	}
	e.Created = created
	e.Updated = updated
	e.Label = label
	e.Father = father
	e.Closed = closed
	e.ClosedAt = closedAt

	var keynewsList []core.KeyNews
	if err := unmarshalJSON(keynews, &keynewsList); err != nil {
		return nil, fmt.Errorf("%w: decoding keynews for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if len(keynewsList) > 0 {
		e.KeyNews = keynewsList[0]
	}
	if err := unmarshalJSON(articles, &e.Articles); err != nil {
		return nil, fmt.Errorf("%w: decoding articles for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(keywords, &e.Keywords); err != nil {
		return nil, fmt.Errorf("%w: decoding keywords for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(when, &e.When); err != nil {
		return nil, fmt.Errorf("%w: decoding when for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(where, &e.Where); err != nil {
		return nil, fmt.Errorf("%w: decoding where for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(who, &e.Who); err != nil {
		return nil, fmt.Errorf("%w: decoding who for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(persons, &e.Persons); err != nil {
		return nil, fmt.Errorf("%w: decoding persons for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(locations, &e.Locations); err != nil {
		return nil, fmt.Errorf("%w: decoding locations for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(orgs, &e.Organizations); err != nil {
		return nil, fmt.Errorf("%w: decoding organizations for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(childrens, &e.Childrens); err != nil {
		return nil, fmt.Errorf("%w: decoding childrens for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if err := unmarshalJSON(related, &e.RelatedEvents); err != nil {
		return nil, fmt.Errorf("%w: decoding relatedEvents for event %s: %v", core.ErrDataInconsistency, e.ID, err)
	}
	if len(extra) > 0 {
		var m map[string]any
		if err := json.Unmarshal(extra, &m); err != nil {
			return nil, fmt.Errorf("%w: decoding extra for event %s: %v", core.ErrDataInconsistency, e.ID, err)
		}
		if len(m) > 0 {
			e.Extra = m
		}
	}
	return &e, nil
}
