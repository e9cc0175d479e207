package auth

import "strings"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
	RoleReader  Role = "reader"
)

// DefaultRole applies when a request carries no role at all.
const DefaultRole = RoleReader

// NormalizeRole lower-cases a role token. Surrounding whitespace is kept, so
// " admin " does not normalize to an allowed role. It does not validate the
// result; an empty token maps to DefaultRole.
func NormalizeRole(token string) Role {
	normalized := strings.ToLower(token)
	if normalized == "" {
		return DefaultRole
	}
	return Role(normalized)
}

// Valid reports whether r is one of the roles the policy knows about.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleReader:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
