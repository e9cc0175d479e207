package auth

// Actor is the resolved identity behind a request. CompanyID is only
// consulted by the policy when Role is RoleCompany.
type Actor struct {
	Role      Role
	CompanyID *int64
}

// ResolveActor builds an Actor from the raw role token and optional company
// id supplied by the transport. An empty token resolves to DefaultRole; an
// unknown token is rejected rather than downgraded.
func ResolveActor(roleToken string, companyID *int64) (Actor, error) {
	role := NormalizeRole(roleToken)
	if !role.Valid() {
		return Actor{}, invalidRole()
	}
	return Actor{Role: role, CompanyID: copyID(companyID)}, nil
}

// Admin, Reader and Company build actors directly, mostly for callers that
// already trust their inputs (CLI tooling, tests).
func Admin() Actor {
	return Actor{Role: RoleAdmin}
}

func Reader() Actor {
	return Actor{Role: RoleReader}
}

func Company(id int64) Actor {
	return Actor{Role: RoleCompany, CompanyID: &id}
}

// owns reports whether a company actor's id equals companyID. A missing id
// never matches.
func (a Actor) owns(companyID int64) bool {
	return a.CompanyID != nil && *a.CompanyID == companyID
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	value := *id
	return &value
}
