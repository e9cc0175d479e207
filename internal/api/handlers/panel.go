package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuplan/server/internal/auth"
	"github.com/tuplan/server/internal/domain/events"
	"github.com/tuplan/server/internal/metrics"
)

//go:embed templates/panel.html
var templatesFS embed.FS

var panelTemplate = template.Must(template.ParseFS(templatesFS, "templates/panel.html"))

// formTimeLayouts are tried in order. Values without an offset are UTC.
var formTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// PanelHandler serves the HTML form for creating events. The form's
// company id identifies both the acting company and the event's owner.
type PanelHandler struct {
	Service *events.Service
	Env     string
}

func NewPanelHandler(service *events.Service, env string) *PanelHandler {
	return &PanelHandler{Service: service, Env: env}
}

type panelForm struct {
	Role        string
	CompanyID   string
	Title       string
	Description string
	StartsAt    string
	EndsAt      string
	Location    string
	Category    string
	Price       string
	Featured    bool
}

type panelData struct {
	Title  string
	Error  string
	Roles  []auth.Role
	Form   panelForm
	Events []events.Event
}

func (h *PanelHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, panelForm{Role: string(auth.RoleCompany)}, "")
}

func (h *PanelHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.render(w, r, http.StatusRequestEntityTooLarge, panelForm{Role: string(auth.RoleCompany)}, "form too large")
			return
		}
		h.render(w, r, http.StatusBadRequest, panelForm{Role: string(auth.RoleCompany)}, "could not read form")
		return
	}

	form := readPanelForm(r)
	actor, input, err := form.toInput()
	if err != nil {
		h.fail(w, r, form, actor, err)
		return
	}

	created, err := h.Service.Create(r.Context(), actor, input)
	if err != nil {
		h.fail(w, r, form, actor, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Int64("event_id", created.ID).
		Int64("company_id", created.CompanyID).
		Msg("event created from panel")
	http.Redirect(w, r, "/panel", http.StatusSeeOther)
}

func (h *PanelHandler) fail(w http.ResponseWriter, r *http.Request, form panelForm, actor auth.Actor, err error) {
	var policyErr *auth.Error
	status := http.StatusInternalServerError
	message := "could not create event"

	switch {
	case errors.As(err, &policyErr):
		metrics.RecordPolicyDenial("panel_create", roleLabel(actor), policyErr.Kind.String())
		status, message = http.StatusForbidden, policyErr.Reason
		if policyErr.Kind == auth.KindMissingScope {
			status = http.StatusBadRequest
		}
	case errors.As(err, new(events.ValidationError)):
		status, message = http.StatusBadRequest, err.Error()
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("panel create failed")
	}
	h.render(w, r, status, form, message)
}

func (h *PanelHandler) render(w http.ResponseWriter, r *http.Request, status int, form panelForm, message string) {
	data := panelData{
		Title: "TuPlan - Event panel",
		Error: message,
		Roles: []auth.Role{auth.RoleCompany, auth.RoleAdmin, auth.RoleReader},
		Form:  form,
	}
	if h.Service != nil {
		list, err := h.Service.List(r.Context(), auth.Reader())
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("panel event list failed")
		}
		data.Events = list
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := panelTemplate.Execute(w, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", "panel.html").Msg("template error")
	}
}

func readPanelForm(r *http.Request) panelForm {
	value := func(key string) string { return strings.TrimSpace(r.PostForm.Get(key)) }

	role := value("role")
	if role == "" {
		role = string(auth.RoleCompany)
	}
	return panelForm{
		Role:        role,
		CompanyID:   value("company_id"),
		Title:       value("title"),
		Description: value("description"),
		StartsAt:    value("starts_at"),
		EndsAt:      value("ends_at"),
		Location:    value("location"),
		Category:    value("category"),
		Price:       value("price"),
		Featured:    parseCheckbox(value("featured")),
	}
}

func (f panelForm) toInput() (auth.Actor, events.EventInput, error) {
	if f.CompanyID == "" {
		return auth.Actor{}, events.EventInput{}, events.ValidationError{Field: "company_id", Message: "is required"}
	}
	companyID, err := parseCompanyID("company_id", f.CompanyID)
	if err != nil {
		return auth.Actor{}, events.EventInput{}, err
	}

	actor, err := auth.ResolveActor(f.Role, companyID)
	if err != nil {
		return auth.Actor{}, events.EventInput{}, err
	}

	input := events.EventInput{
		CompanyID:   companyID,
		Title:       f.Title,
		Description: f.Description,
		Location:    f.Location,
		Category:    f.Category,
		Price:       f.Price,
		Featured:    f.Featured,
	}
	if input.StartsAt, err = parseFormTime("starts_at", f.StartsAt); err != nil {
		return actor, events.EventInput{}, err
	}
	if input.EndsAt, err = parseFormTime("ends_at", f.EndsAt); err != nil {
		return actor, events.EventInput{}, err
	}
	return actor, input, nil
}

// parseFormTime returns nil for an empty value.
func parseFormTime(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range formTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, events.ValidationError{Field: field, Message: "must be an ISO 8601 date-time"}
}

func parseCheckbox(raw string) bool {
	switch strings.ToLower(raw) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
