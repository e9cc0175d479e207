package auth

// Request metadata carrying the pre-trusted identity. The transport reads
// these; ResolveActor never sees headers directly.
const (
	HeaderRole      = "X-Role"
	HeaderCompanyID = "X-Company-Id"
	// HeaderLegacyCompanyID is accepted when HeaderCompanyID is absent.
	HeaderLegacyCompanyID = "X-Empresa-Id"
)
