package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tuplan/server/internal/api/problem"
	"github.com/tuplan/server/internal/auth"
	"github.com/tuplan/server/internal/domain/events"
	"github.com/tuplan/server/internal/domain/events/eventstest"
	"github.com/tuplan/server/internal/testauth"
)

var testStart = time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)

func seedEvent(companyID int64, title string) events.Event {
	return events.Event{
		CompanyID:   companyID,
		Title:       title,
		Description: "A night out",
		StartsAt:    testStart,
		Location:    "Main hall",
		Category:    "music",
		Price:       "10 EUR",
	}
}

func newEventsMux(t *testing.T, seed ...events.Event) (*http.ServeMux, *eventstest.Repository, []events.Event) {
	t.Helper()
	repo := eventstest.New()
	seeded := repo.Seed(seed...)
	h := NewEventsHandler(events.NewService(repo, zerolog.Nop()), "test")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/events", h.List)
	mux.HandleFunc("POST /api/v1/events", h.Create)
	mux.HandleFunc("GET /api/v1/events/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/events/{id}", h.Update)
	mux.HandleFunc("PATCH /api/v1/events/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/events/{id}", h.Delete)
	return mux, repo, seeded
}

func do(t *testing.T, h http.Handler, method, path string, body string, who *testauth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if who != nil {
		who.Apply(req)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func identity(i testauth.Identity) *testauth.Identity { return &i }

func decodeProblem(t *testing.T, res *httptest.ResponseRecorder) problem.ProblemDetails {
	t.Helper()
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	var body problem.ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func decodeList(t *testing.T, res *httptest.ResponseRecorder) []eventResponse {
	t.Helper()
	var body listResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body.Items
}

const createBody = `{
	"company_id": 3,
	"title": "Jazz night",
	"description": "Live jazz",
	"starts_at": "2025-01-05T20:00:00Z",
	"location": "Main hall",
	"category": "music",
	"price": "free",
	"featured": true
}`

func TestListEventsVisibility(t *testing.T) {
	mux, _, _ := newEventsMux(t, seedEvent(3, "Three"), seedEvent(7, "Seven"))

	res := do(t, mux, http.MethodGet, "/api/v1/events", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, decodeList(t, res), 2, "no headers means reader")

	res = do(t, mux, http.MethodGet, "/api/v1/events", "", identity(testauth.AsCompany(3)))
	require.Equal(t, http.StatusOK, res.Code)
	items := decodeList(t, res)
	require.Len(t, items, 1)
	require.Equal(t, int64(3), items[0].CompanyID)
}

func TestListEventsLegacyCompanyHeader(t *testing.T) {
	mux, _, _ := newEventsMux(t, seedEvent(3, "Three"), seedEvent(7, "Seven"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set(auth.HeaderRole, "company")
	req.Header.Set(auth.HeaderLegacyCompanyID, "7")
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	items := decodeList(t, res)
	require.Len(t, items, 1)
	require.Equal(t, int64(7), items[0].CompanyID)
}

func TestListEventsCompanyWithoutID(t *testing.T) {
	mux, _, _ := newEventsMux(t, seedEvent(3, "Three"))

	res := do(t, mux, http.MethodGet, "/api/v1/events", "", identity(testauth.Identity{Role: "company"}))
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decodeProblem(t, res)
	require.Equal(t, problem.TypeMissingScope, body.Type)
	require.Equal(t, auth.ReasonMissingCompanyID, body.Detail)
}

func TestResolveErrors(t *testing.T) {
	mux, _, _ := newEventsMux(t)

	res := do(t, mux, http.MethodGet, "/api/v1/events", "", identity(testauth.Identity{Role: "superuser"}))
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, auth.ReasonRoleNotAllowed, decodeProblem(t, res).Detail)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set(auth.HeaderRole, "company")
	req.Header.Set(auth.HeaderCompanyID, "three")
	res = httptest.NewRecorder()
	mux.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decodeProblem(t, res)
	require.Equal(t, "must be an integer", body.Errors[auth.HeaderCompanyID])
}

func TestCreateEvent(t *testing.T) {
	mux, repo, _ := newEventsMux(t)

	res := do(t, mux, http.MethodPost, "/api/v1/events", createBody, identity(testauth.AsCompany(3)))
	require.Equal(t, http.StatusCreated, res.Code)

	var created eventResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	require.NotZero(t, created.ID)
	require.Equal(t, int64(3), created.CompanyID)
	require.True(t, created.Featured)
	require.Nil(t, created.EndsAt)
	require.True(t, testStart.Equal(created.StartsAt))
	require.Equal(t, "/api/v1/events/1", res.Header().Get("Location"))
	require.Equal(t, 1, repo.Writes)
}

func TestCreateEventLocationUsesBaseURL(t *testing.T) {
	for _, base := range []string{"https://events.example.com", "https://events.example.com/"} {
		t.Run(base, func(t *testing.T) {
			h := NewEventsHandler(events.NewService(eventstest.New(), zerolog.Nop()), "test")
			h.BaseURL = base

			res := do(t, http.HandlerFunc(h.Create), http.MethodPost, "/api/v1/events", createBody, identity(testauth.AsCompany(3)))
			require.Equal(t, http.StatusCreated, res.Code)
			require.Equal(t, "https://events.example.com/api/v1/events/1", res.Header().Get("Location"))
		})
	}
}

func TestCreateEventDenied(t *testing.T) {
	tests := []struct {
		name   string
		who    testauth.Identity
		reason string
	}{
		{name: "other company", who: testauth.AsCompany(7), reason: auth.ReasonModifyOtherCompany},
		{name: "reader", who: testauth.AsReader(), reason: auth.ReasonNoWritePermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, repo, _ := newEventsMux(t)
			res := do(t, mux, http.MethodPost, "/api/v1/events", createBody, identity(tt.who))
			require.Equal(t, http.StatusForbidden, res.Code)
			body := decodeProblem(t, res)
			require.Equal(t, problem.TypeForbidden, body.Type)
			require.Equal(t, tt.reason, body.Detail)
			require.Zero(t, repo.Writes)
		})
	}
}

func TestCreateEventBadPayload(t *testing.T) {
	mux, _, _ := newEventsMux(t)

	res := do(t, mux, http.MethodPost, "/api/v1/events", `{"title":`, identity(testauth.AsAdmin()))
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, problem.TypeBadRequest, decodeProblem(t, res).Type)

	res = do(t, mux, http.MethodPost, "/api/v1/events", `{"company_id": 3}`, identity(testauth.AsAdmin()))
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decodeProblem(t, res)
	require.Equal(t, problem.TypeValidation, body.Type)
	require.Equal(t, "is required", body.Errors["title"])
}

func TestGetEvent(t *testing.T) {
	mux, _, seeded := newEventsMux(t, seedEvent(7, "Seven"))
	path := "/api/v1/events/" + itoa(seeded[0].ID)

	res := do(t, mux, http.MethodGet, path, "", identity(testauth.AsCompany(3)))
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, "cannot view events of another company", decodeProblem(t, res).Detail)

	res = do(t, mux, http.MethodGet, path, "", identity(testauth.AsCompany(7)))
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, mux, http.MethodGet, "/api/v1/events/999", "", nil)
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, problem.TypeNotFound, decodeProblem(t, res).Type)

	res = do(t, mux, http.MethodGet, "/api/v1/events/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestUpdateEventOwnershipChangeDenied(t *testing.T) {
	mux, repo, seeded := newEventsMux(t, seedEvent(5, "Five"))
	path := "/api/v1/events/" + itoa(seeded[0].ID)

	res := do(t, mux, http.MethodPatch, path, `{"company_id": 9, "title": "Moved"}`, identity(testauth.AsCompany(5)))
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, auth.ReasonModifyOtherCompany, decodeProblem(t, res).Detail)
	require.Zero(t, repo.Writes)

	res = do(t, mux, http.MethodGet, path, "", identity(testauth.AsAdmin()))
	var stored eventResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stored))
	require.Equal(t, int64(5), stored.CompanyID)
	require.Equal(t, "Five", stored.Title)
}

func TestUpdateEventPartial(t *testing.T) {
	mux, _, seeded := newEventsMux(t, seedEvent(5, "Five"))
	path := "/api/v1/events/" + itoa(seeded[0].ID)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		res := do(t, mux, method, path, `{"title": "Five, `+method+`", "ends_at": "2025-01-05T23:00:00Z"}`, identity(testauth.AsCompany(5)))
		require.Equal(t, http.StatusOK, res.Code)

		var updated eventResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&updated))
		require.Equal(t, "Five, "+method, updated.Title)
		require.Equal(t, "A night out", updated.Description)
		require.NotNil(t, updated.EndsAt)
	}

	res := do(t, mux, http.MethodPatch, path, `{"ends_at": null}`, identity(testauth.AsAdmin()))
	require.Equal(t, http.StatusOK, res.Code)
	var cleared eventResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&cleared))
	require.Nil(t, cleared.EndsAt)

	res = do(t, mux, http.MethodPatch, path, `{"title": null}`, identity(testauth.AsAdmin()))
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "must not be null", decodeProblem(t, res).Errors["title"])
}

func TestDeleteEvent(t *testing.T) {
	mux, _, seeded := newEventsMux(t, seedEvent(3, "Three"))
	path := "/api/v1/events/" + itoa(seeded[0].ID)

	res := do(t, mux, http.MethodDelete, path, "", identity(testauth.AsReader()))
	require.Equal(t, http.StatusForbidden, res.Code)

	res = do(t, mux, http.MethodDelete, path, "", identity(testauth.AsCompany(3)))
	require.Equal(t, http.StatusNoContent, res.Code)

	res = do(t, mux, http.MethodDelete, path, "", identity(testauth.AsAdmin()))
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestWriteServiceErrorPayloadTooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	res := httptest.NewRecorder()
	writeServiceError(res, req, "create", auth.Admin(), errBadBody{err: &http.MaxBytesError{Limit: 1024}}, "test")

	require.Equal(t, http.StatusRequestEntityTooLarge, res.Code)
	require.Equal(t, "request body exceeds 1024 bytes", decodeProblem(t, res).Detail)
}

func TestNilHandler(t *testing.T) {
	var h *EventsHandler
	res := httptest.NewRecorder()
	h.List(res, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	require.Equal(t, http.StatusInternalServerError, res.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
