package events

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuplan/server/internal/auth"
)

const tracerName = "github.com/tuplan/server/internal/domain/events"

// Service runs event CRUD behind the access policy. Every method takes an
// already resolved actor.
type Service struct {
	repo      Repository
	logger    zerolog.Logger
	validator *validator.Validate
	tracer    trace.Tracer
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "events").Logger(),
		validator: newValidator(),
		tracer:    otel.Tracer(tracerName),
	}
}

// List returns events visible to actor, ordered by start time. Company
// actors only ever see their own company.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Event, error) {
	ctx, span := s.startSpan(ctx, "events.List", actor)
	defer span.End()

	scope, err := auth.ListScope(actor)
	if err != nil {
		s.logDenied(ctx, "list", actor, 0, err)
		return nil, err
	}
	return s.repo.List(ctx, Filters{CompanyID: scope})
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id int64) (*Event, error) {
	ctx, span := s.startSpan(ctx, "events.Get", actor)
	defer span.End()

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanRead(actor, event.CompanyID); err != nil {
		s.logDenied(ctx, "read", actor, event.CompanyID, err)
		return nil, err
	}
	return event, nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, input EventInput) (*Event, error) {
	ctx, span := s.startSpan(ctx, "events.Create", actor)
	defer span.End()

	input = NormalizeEventInput(input)
	if err := ValidateEventInput(s.validator, input); err != nil {
		return nil, err
	}
	if err := auth.CanWrite(actor, *input.CompanyID); err != nil {
		s.logDenied(ctx, "create", actor, *input.CompanyID, err)
		return nil, err
	}

	event, err := s.repo.Create(ctx, createParamsFromInput(input))
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info().
		Int64("event_id", event.ID).
		Int64("company_id", event.CompanyID).
		Str("role", actor.Role.String()).
		Msg("event created")
	return event, nil
}

// Update applies a partial update. The actor must be able to write the
// event's current company and, when the patch moves the event, the new one
// too. Both checks happen before anything is written.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id int64, patch Patch) (*Event, error) {
	ctx, span := s.startSpan(ctx, "events.Update", actor)
	defer span.End()

	if err := patch.checkNulls(); err != nil {
		return nil, err
	}
	patch = normalizePatch(patch)

	var updated *Event
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.CanWrite(actor, current.CompanyID); err != nil {
			s.logDenied(ctx, "update", actor, current.CompanyID, err)
			return err
		}
		if patch.ChangesOwner() {
			if err := auth.CanReassign(actor, current.CompanyID, patch.CompanyID.Value); err != nil {
				s.logDenied(ctx, "reassign", actor, patch.CompanyID.Value, err)
				return err
			}
		}

		next := patch.Apply(*current)
		if err := validateEvent(s.validator, next); err != nil {
			return err
		}

		updated, err = repo.Update(ctx, next)
		if err != nil {
			return fmt.Errorf("update event %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id int64) error {
	ctx, span := s.startSpan(ctx, "events.Delete", actor)
	defer span.End()

	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := auth.CanWrite(actor, current.CompanyID); err != nil {
			s.logDenied(ctx, "delete", actor, current.CompanyID, err)
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete event %d: %w", id, err)
		}
		return nil
	})
}

func (s *Service) startSpan(ctx context.Context, name string, actor auth.Actor) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("actor.role", actor.Role.String())}
	if actor.CompanyID != nil {
		attrs = append(attrs, attribute.Int64("actor.company_id", *actor.CompanyID))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logDenied(ctx context.Context, operation string, actor auth.Actor, companyID int64, err error) {
	logger := s.logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		logger = ctxLogger.With().Str("component", "events").Logger()
	}
	evt := logger.Debug().
		Str("operation", operation).
		Str("role", actor.Role.String()).
		Int64("target_company_id", companyID).
		Str("kind", auth.KindOf(err).String()).
		Str("reason", err.Error())
	if actor.CompanyID != nil {
		evt = evt.Int64("company_id", *actor.CompanyID)
	}
	evt.Msg("access denied")
}
