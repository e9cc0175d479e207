package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tuplan/server/internal/auth"
	"github.com/tuplan/server/internal/domain/events"
)

// actorFromRequest resolves the caller from X-Role and X-Company-Id, falling
// back to X-Empresa-Id when X-Company-Id is absent. A missing X-Role means
// reader; an X-Role that is present but empty is rejected.
func actorFromRequest(r *http.Request) (auth.Actor, error) {
	roles := r.Header.Values(auth.HeaderRole)
	if len(roles) > 0 && roles[0] == "" {
		return auth.Actor{}, auth.ErrInvalidRole
	}

	header := auth.HeaderCompanyID
	raw := strings.TrimSpace(r.Header.Get(header))
	if raw == "" {
		header = auth.HeaderLegacyCompanyID
		raw = strings.TrimSpace(r.Header.Get(header))
	}

	companyID, err := parseCompanyID(header, raw)
	if err != nil {
		return auth.Actor{}, err
	}
	var role string
	if len(roles) > 0 {
		role = roles[0]
	}
	return auth.ResolveActor(role, companyID)
}

// parseCompanyID returns nil for an empty value.
func parseCompanyID(field, raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, events.ValidationError{Field: field, Message: "must be an integer"}
	}
	return &value, nil
}

func parseEventID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, events.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}
