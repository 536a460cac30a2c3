// Package scope implements the fetch policy shared by the catalog stores:
// tenant-scoped data may only be read or written while a user is
// authenticated and an active tenant is known. A failed check is a policy
// gate, not an error - callers clear their local cache and do nothing else.
package scope

// Scope is the (authenticated, tenant) pair that gates data access.
type Scope struct {
	Authenticated bool
	TenantID      string
}

// Valid reports whether data access is currently permitted.
func (s Scope) Valid() bool {
	return CanAccess(s.Authenticated, s.TenantID)
}

// CanAccess returns true only when both inputs are present and consistent.
func CanAccess(authenticated bool, tenantID string) bool {
	return authenticated && tenantID != ""
}
