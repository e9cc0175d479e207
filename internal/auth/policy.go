package auth

// CanRead returns nil when actor may read data owned by companyID.
//
// Admins and readers see every company. A company actor sees only its own
// events. Role membership is checked again here even though ResolveActor
// already rejects unknown roles, since an Actor can be built by hand.
func CanRead(actor Actor, companyID int64) error {
	switch actor.Role {
	case RoleAdmin, RoleReader:
		return nil
	case RoleCompany:
		if actor.owns(companyID) {
			return nil
		}
		return forbidden(ReasonViewOtherCompany)
	default:
		return invalidRole()
	}
}

// CanWrite returns nil when actor may create, modify or delete data owned by
// companyID. Readers never write.
func CanWrite(actor Actor, companyID int64) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleReader:
		return forbidden(ReasonNoWritePermission)
	case RoleCompany:
		if actor.owns(companyID) {
			return nil
		}
		return forbidden(ReasonModifyOtherCompany)
	default:
		return invalidRole()
	}
}

// CanReassign authorizes an ownership change from currentCompanyID to
// newCompanyID. The current owner is checked first; the new owner must also
// be writable by actor.
func CanReassign(actor Actor, currentCompanyID, newCompanyID int64) error {
	if err := CanWrite(actor, currentCompanyID); err != nil {
		return err
	}
	return CanWrite(actor, newCompanyID)
}

// ListScope returns the company filter a listing must apply for actor. A nil
// filter means unrestricted. A company actor without a company id cannot be
// scoped and is rejected.
func ListScope(actor Actor) (*int64, error) {
	switch actor.Role {
	case RoleAdmin, RoleReader:
		return nil, nil
	case RoleCompany:
		if actor.CompanyID == nil {
			return nil, missingScope()
		}
		return copyID(actor.CompanyID), nil
	default:
		return nil, invalidRole()
	}
}
