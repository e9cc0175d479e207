package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tuplan/server/internal/api/problem"
	"github.com/tuplan/server/internal/auth"
	"github.com/tuplan/server/internal/domain/events"
	"github.com/tuplan/server/internal/metrics"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
	// BaseURL makes Location headers absolute when set.
	BaseURL string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventResponse struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Location    string     `json:"location"`
	Category    string     `json:"category"`
	Price       string     `json:"price"`
	Featured    bool       `json:"featured"`
	CreatedAt   time.Time  `json:"created_at"`
}

type listResponse struct {
	Items []eventResponse `json:"items"`
}

func toEventResponse(event events.Event) eventResponse {
	return eventResponse{
		ID:          event.ID,
		CompanyID:   event.CompanyID,
		Title:       event.Title,
		Description: event.Description,
		StartsAt:    event.StartsAt,
		EndsAt:      event.EndsAt,
		Location:    event.Location,
		Category:    event.Category,
		Price:       event.Price,
		Featured:    event.Featured,
		CreatedAt:   event.CreatedAt,
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolve(w, r)
	if !ok {
		return
	}

	items, err := h.Service.List(r.Context(), actor)
	if err != nil {
		writeServiceError(w, r, "list", actor, err, h.Env)
		return
	}

	resp := listResponse{Items: make([]eventResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toEventResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var input events.EventInput
	if err := decodeJSON(r, &input); err != nil {
		writeServiceError(w, r, "create", actor, err, h.Env)
		return
	}

	created, err := h.Service.Create(r.Context(), actor, input)
	if err != nil {
		writeServiceError(w, r, "create", actor, err, h.Env)
		return
	}

	w.Header().Set("Location", h.eventURL(created.ID))
	writeJSON(w, http.StatusCreated, toEventResponse(*created))
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := parseEventID(r)
	if err != nil {
		writeServiceError(w, r, "read", actor, err, h.Env)
		return
	}

	event, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, r, "read", actor, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(*event))
}

// Update serves both PUT and PATCH. Either way only the fields present in
// the body change.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := parseEventID(r)
	if err != nil {
		writeServiceError(w, r, "update", actor, err, h.Env)
		return
	}

	var patch events.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, "update", actor, err, h.Env)
		return
	}

	updated, err := h.Service.Update(r.Context(), actor, id, patch)
	if err != nil {
		writeServiceError(w, r, "update", actor, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(*updated))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := parseEventID(r)
	if err != nil {
		writeServiceError(w, r, "delete", actor, err, h.Env)
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, "delete", actor, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) resolve(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", errors.New("events handler not configured"), "")
		return auth.Actor{}, false
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		writeServiceError(w, r, "resolve", actor, err, h.Env)
		return auth.Actor{}, false
	}
	return actor, true
}

// errBadBody wraps JSON decoding failures so they map to 400.
type errBadBody struct{ err error }

func (e errBadBody) Error() string { return "invalid JSON body: " + e.err.Error() }

func (e errBadBody) Unwrap() error { return e.err }

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadBody{err: io.EOF}
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errBadBody{err: err}
	}
	if dec.More() {
		return errBadBody{err: errors.New("unexpected data after JSON object")}
	}
	return nil
}

// writeServiceError maps domain and policy errors to problem responses.
// Policy denials always carry their reason and are counted.
func writeServiceError(w http.ResponseWriter, r *http.Request, operation string, actor auth.Actor, err error, env string) {
	var (
		policyErr     *auth.Error
		validationErr events.ValidationError
		maxBytesErr   *http.MaxBytesError
		badBody       errBadBody
	)

	switch {
	case errors.As(err, &policyErr):
		metrics.RecordPolicyDenial(operation, roleLabel(actor), policyErr.Kind.String())
		if policyErr.Kind == auth.KindMissingScope {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeMissingScope, "Missing scope", err, env, problem.WithDetail(policyErr.Reason))
			return
		}
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env, problem.WithDetail(policyErr.Reason))
	case errors.As(err, &maxBytesErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err, env,
			problem.WithDetail(fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit)))
	case errors.As(err, &validationErr):
		opts := []problem.Option{problem.WithDetail(validationErr.Error())}
		if validationErr.Field != "" {
			opts = append(opts, problem.WithFieldError(validationErr.Field, validationErr.Message))
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env, opts...)
	case errors.As(err, &badBody):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Invalid request", err, env)
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env, problem.WithDetail("event not found"))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server error", err, env)
	}
}

// roleLabel keeps caller-supplied role tokens out of metric labels.
func roleLabel(actor auth.Actor) string {
	if actor.Role.Valid() {
		return actor.Role.String()
	}
	return "invalid"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *EventsHandler) eventURL(id int64) string {
	return strings.TrimRight(h.BaseURL, "/") + "/api/v1/events/" + strconv.FormatInt(id, 10)
}
