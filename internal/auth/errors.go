package auth

import "errors"

// Kind classifies a policy failure so the transport layer can pick a status.
type Kind int

const (
	KindForbidden Kind = iota + 1
	KindInvalidRole
	KindMissingScope
)

func (k Kind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindInvalidRole:
		return "invalid_role"
	case KindMissingScope:
		return "missing_scope"
	default:
		return "unknown"
	}
}

// Denial reasons returned to callers.
const (
	ReasonRoleNotAllowed     = "role not allowed"
	ReasonNoWritePermission  = "no write permission"
	ReasonViewOtherCompany   = "cannot view events of another company"
	ReasonModifyOtherCompany = "cannot modify events of another company"
	ReasonMissingCompanyID   = "company_id is required for the company role"
)

// Sentinels for errors.Is. Each matches any *Error of the same Kind.
var (
	ErrForbidden    = &Error{Kind: KindForbidden, Reason: "forbidden"}
	ErrInvalidRole  = &Error{Kind: KindInvalidRole, Reason: ReasonRoleNotAllowed}
	ErrMissingScope = &Error{Kind: KindMissingScope, Reason: ReasonMissingCompanyID}
)

// Error is a policy denial. Reason is safe to show to the caller.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

func forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

func invalidRole() error {
	return &Error{Kind: KindInvalidRole, Reason: ReasonRoleNotAllowed}
}

func missingScope() error {
	return &Error{Kind: KindMissingScope, Reason: ReasonMissingCompanyID}
}

// KindOf returns the Kind of a policy error, or 0 if err is not one.
func KindOf(err error) Kind {
	var policyErr *Error
	if errors.As(err, &policyErr) {
		return policyErr.Kind
	}
	return 0
}
