// Package eventstest provides an in-memory events.Repository for tests.
package eventstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tuplan/server/internal/domain/events"
)

// Repository keeps events in a map. Transactions are serialized and rolled
// back by restoring a snapshot.
type Repository struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID int64
	items  map[int64]events.Event
	now    func() time.Time

	// Writes counts successful Create, Update and Delete calls.
	Writes int
}

var _ events.Repository = (*Repository)(nil)

func New() *Repository {
	return &Repository{
		items: make(map[int64]events.Event),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Seed inserts events as-is, assigning ids to those without one.
func (r *Repository) Seed(items ...events.Event) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Event, 0, len(items))
	for _, item := range items {
		if item.ID == 0 {
			r.nextID++
			item.ID = r.nextID
		} else if item.ID > r.nextID {
			r.nextID = item.ID
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = r.now()
		}
		r.items[item.ID] = item
		out = append(out, item)
	}
	return out
}

func (r *Repository) List(_ context.Context, filters events.Filters) ([]events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Event, 0, len(r.items))
	for _, item := range r.items {
		if filters.CompanyID != nil && item.CompanyID != *filters.CompanyID {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func (r *Repository) GetByID(_ context.Context, id int64) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	return &item, nil
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*events.Event, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) Create(_ context.Context, params events.EventCreateParams) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	item := events.Event{
		ID:          r.nextID,
		CompanyID:   params.CompanyID,
		Title:       params.Title,
		Description: params.Description,
		StartsAt:    params.StartsAt,
		EndsAt:      params.EndsAt,
		Location:    params.Location,
		Category:    params.Category,
		Price:       params.Price,
		Featured:    params.Featured,
		CreatedAt:   r.now(),
	}
	r.items[item.ID] = item
	r.Writes++
	return &item, nil
}

func (r *Repository) Update(_ context.Context, event events.Event) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[event.ID]
	if !ok {
		return nil, events.ErrNotFound
	}
	event.CreatedAt = current.CreatedAt
	r.items[event.ID] = event
	r.Writes++
	return &event, nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return events.ErrNotFound
	}
	delete(r.items, id)
	r.Writes++
	return nil
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, events.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	snapshot, nextID, writes := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.items, r.nextID, r.Writes = snapshot, nextID, writes
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Repository) snapshot() (map[int64]events.Event, int64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make(map[int64]events.Event, len(r.items))
	for id, item := range r.items {
		copied[id] = item
	}
	return copied, r.nextID, r.Writes
}
