// Package testauth sets identity headers on outgoing requests for tests, load
// runs and local tooling. The server trusts these headers as-is, so this
// package must not be used to talk to anything but a development instance.
package testauth

import (
	"net/http"
	"strconv"

	"github.com/tuplan/server/internal/auth"
)

// Identity describes who a request claims to be.
type Identity struct {
	Role      string
	CompanyID *int64
}

// AsAdmin, AsReader and AsCompany build the common identities.
func AsAdmin() Identity {
	return Identity{Role: string(auth.RoleAdmin)}
}

func AsReader() Identity {
	return Identity{Role: string(auth.RoleReader)}
}

func AsCompany(id int64) Identity {
	return Identity{Role: string(auth.RoleCompany), CompanyID: &id}
}

// Apply writes the identity headers onto req, clearing any stale company id.
func (i Identity) Apply(req *http.Request) {
	if req == nil {
		return
	}
	req.Header.Del(auth.HeaderLegacyCompanyID)
	if i.Role == "" {
		req.Header.Del(auth.HeaderRole)
	} else {
		req.Header.Set(auth.HeaderRole, i.Role)
	}
	if i.CompanyID == nil {
		req.Header.Del(auth.HeaderCompanyID)
		return
	}
	req.Header.Set(auth.HeaderCompanyID, strconv.FormatInt(*i.CompanyID, 10))
}

// Headers returns the identity as a header map, for clients that build
// requests elsewhere.
func (i Identity) Headers() http.Header {
	h := http.Header{}
	if i.Role != "" {
		h.Set(auth.HeaderRole, i.Role)
	}
	if i.CompanyID != nil {
		h.Set(auth.HeaderCompanyID, strconv.FormatInt(*i.CompanyID, 10))
	}
	return h
}
