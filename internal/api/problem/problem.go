// Package problem writes RFC 7807 application/problem+json responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const typeBase = "https://tuplan.dev/problems/"

const (
	TypeBadRequest   = typeBase + "bad-request"
	TypeValidation   = typeBase + "validation-error"
	TypeForbidden    = typeBase + "forbidden"
	TypeMissingScope = typeBase + "missing-scope"
	TypeNotFound     = typeBase + "not-found"
	TypeRateLimited  = typeBase + "rate-limited"
	TypeTooLarge     = typeBase + "payload-too-large"
	TypeUnavailable  = typeBase + "unavailable"
	TypeInternal     = typeBase + "internal"
)

type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

// WithDetail sets a detail that is shown in every environment.
func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithInstance(instance string) Option {
	return func(p *ProblemDetails) {
		p.Instance = instance
	}
}

// WithFieldError records a per-field message, keyed by JSON field name.
func WithFieldError(field, message string) Option {
	return func(p *ProblemDetails) {
		if p.Errors == nil {
			p.Errors = make(map[string]string)
		}
		p.Errors[field] = message
	}
}

// Write renders a problem. Without WithDetail, err's text is exposed only in
// development and test; other environments get the status text.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	p := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if p.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(status)
		}
	}
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}

	if err != nil && r != nil {
		logProblem(r, p, err)
	}
	WriteProblem(w, p)
}

func logProblem(r *http.Request, p ProblemDetails, err error) {
	logger := zerolog.Ctx(r.Context())
	var evt *zerolog.Event
	switch {
	case p.Status >= 500:
		evt = logger.Error()
	case p.Status >= 400:
		evt = logger.Warn()
	default:
		return
	}
	evt.Err(err).
		Int("status", p.Status).
		Str("type", p.Type).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(p.Title)
}

func WriteProblem(w http.ResponseWriter, p ProblemDetails) {
	payload, err := json.Marshal(p)
	if err != nil {
		p = ProblemDetails{Type: "about:blank", Title: http.StatusText(http.StatusInternalServerError), Status: http.StatusInternalServerError}
		payload, _ = json.Marshal(p)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
