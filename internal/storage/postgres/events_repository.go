package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuplan/server/internal/domain/events"
	"github.com/tuplan/server/internal/metrics"
)

const eventColumns = `id, company_id, title, description, starts_at, ends_at,
       location, category, price, featured, created_at`

type eventRow struct {
	ID          int64
	CompanyID   int64
	Title       string
	Description string
	StartsAt    pgtype.Timestamptz
	EndsAt      pgtype.Timestamptz
	Location    string
	Category    string
	Price       string
	Featured    bool
	CreatedAt   pgtype.Timestamptz
}

func (row *eventRow) scanTargets() []any {
	return []any{
		&row.ID,
		&row.CompanyID,
		&row.Title,
		&row.Description,
		&row.StartsAt,
		&row.EndsAt,
		&row.Location,
		&row.Category,
		&row.Price,
		&row.Featured,
		&row.CreatedAt,
	}
}

func (row eventRow) toEvent() events.Event {
	event := events.Event{
		ID:          row.ID,
		CompanyID:   row.CompanyID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Category:    row.Category,
		Price:       row.Price,
		Featured:    row.Featured,
	}
	if row.StartsAt.Valid {
		event.StartsAt = row.StartsAt.Time.UTC()
	}
	if row.EndsAt.Valid {
		value := row.EndsAt.Time.UTC()
		event.EndsAt = &value
	}
	if row.CreatedAt.Valid {
		event.CreatedAt = row.CreatedAt.Time.UTC()
	}
	return event
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters) (_ []events.Event, err error) {
	defer observe("list_events", time.Now(), &err)

	rows, err := r.queryer().Query(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE ($1::bigint IS NULL OR company_id = $1::bigint)
 ORDER BY starts_at ASC, id ASC
`, filters.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan events: %w", err)
		}
		items = append(items, row.toEvent())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*events.Event, error) {
	return r.getByID(ctx, id, "")
}

func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*events.Event, error) {
	if r.tx == nil {
		return r.getByID(ctx, id, "")
	}
	return r.getByID(ctx, id, " FOR UPDATE")
}

func (r *EventRepository) getByID(ctx context.Context, id int64, lock string) (_ *events.Event, err error) {
	defer observe("get_event", time.Now(), &err)

	var row eventRow
	err = r.queryer().QueryRow(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE id = $1`+lock, id).Scan(row.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	event := row.toEvent()
	return &event, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.EventCreateParams) (_ *events.Event, err error) {
	defer observe("create_event", time.Now(), &err)

	var row eventRow
	err = r.queryer().QueryRow(ctx, `
INSERT INTO events (company_id, title, description, starts_at, ends_at, location, category, price, featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+eventColumns,
		params.CompanyID,
		params.Title,
		params.Description,
		params.StartsAt,
		params.EndsAt,
		params.Location,
		params.Category,
		params.Price,
		params.Featured,
	).Scan(row.scanTargets()...)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	event := row.toEvent()
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, event events.Event) (_ *events.Event, err error) {
	defer observe("update_event", time.Now(), &err)

	var row eventRow
	err = r.queryer().QueryRow(ctx, `
UPDATE events
   SET company_id = $2,
       title = $3,
       description = $4,
       starts_at = $5,
       ends_at = $6,
       location = $7,
       category = $8,
       price = $9,
       featured = $10
 WHERE id = $1
RETURNING `+eventColumns,
		event.ID,
		event.CompanyID,
		event.Title,
		event.Description,
		event.StartsAt,
		event.EndsAt,
		event.Location,
		event.Category,
		event.Price,
		event.Featured,
	).Scan(row.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	updated := row.toEvent()
	return &updated, nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("delete_event", time.Now(), &err)

	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// observe records store latency. A missing row is an expected outcome and is
// not counted as an error.
func observe(operation string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, events.ErrNotFound) {
		err = nil
	}
	metrics.RecordQuery(operation, start, err)
}
