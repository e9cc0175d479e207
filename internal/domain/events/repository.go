package events

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

type Event struct {
	ID          int64
	CompanyID   int64
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      *time.Time
	Location    string
	Category    string
	Price       string
	Featured    bool
	CreatedAt   time.Time
}

type EventCreateParams struct {
	CompanyID   int64
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      *time.Time
	Location    string
	Category    string
	Price       string
	Featured    bool
}

// Filters scopes a listing. A nil CompanyID lists every company.
type Filters struct {
	CompanyID *int64
}

type Repository interface {
	List(ctx context.Context, filters Filters) ([]Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	// GetByIDForUpdate loads the row and holds it until the surrounding
	// transaction ends. Outside WithTx it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, params EventCreateParams) (*Event, error)
	Update(ctx context.Context, event Event) (*Event, error)
	Delete(ctx context.Context, id int64) error
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

func createParamsFromInput(input EventInput) EventCreateParams {
	params := EventCreateParams{
		Title:       input.Title,
		Description: input.Description,
		EndsAt:      input.EndsAt,
		Location:    input.Location,
		Category:    input.Category,
		Price:       input.Price,
		Featured:    input.Featured,
	}
	if input.CompanyID != nil {
		params.CompanyID = *input.CompanyID
	}
	if input.StartsAt != nil {
		params.StartsAt = *input.StartsAt
	}
	return params
}
