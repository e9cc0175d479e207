package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuplan/server/internal/domain/events"
)

// Repository is the PostgreSQL-backed store.
type Repository struct {
	pool   *pgxpool.Pool
	events *EventRepository
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &Repository{
		pool:   pool,
		events: &EventRepository{pool: pool},
	}, nil
}

// Events returns the events repository
func (r *Repository) Events() *EventRepository {
	return r.events
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// EventRepository implements events.Repository. When tx is set every query
// runs inside that transaction.
type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ events.Repository = (*EventRepository)(nil)

// WithTx executes fn within a database transaction. Nested calls reuse the
// outer transaction.
func (r *EventRepository) WithTx(ctx context.Context, fn func(context.Context, events.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &EventRepository{pool: r.pool, tx: tx}
	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
