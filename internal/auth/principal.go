package auth

import (
	"errors"

	"github.com/gofrs/uuid"
)

var ErrPermissionDenied = errors.New("permission denied")

type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

func (r Role) String() string {
	return string(r)
}

// ValidRole reports whether r is one of the known staff roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleCashier:
		return true
	}
	return false
}

// Principal is an already-authenticated actor. The superuser flag is
// orthogonal to Role: it bypasses both role checks and tenant scoping.
type Principal struct {
	UserID    uuid.UUID
	Role      Role
	TenantID  *uuid.UUID
	Superuser bool
}

// TenantScope confines queries on tenant-owned entities. It is one of:
// unrestricted (superuser), a single tenant, or empty (authenticated
// principal with no tenant). Repositories must consult it on every query
// and force-assign its tenant on create.
type TenantScope struct {
	unrestricted bool
	tenantID     uuid.UUID
}

func UnrestrictedScope() TenantScope {
	return TenantScope{unrestricted: true}
}

func ScopeFor(tenantID uuid.UUID) TenantScope {
	return TenantScope{tenantID: tenantID}
}

func EmptyScope() TenantScope {
	return TenantScope{}
}

func (s TenantScope) Unrestricted() bool {
	return s.unrestricted
}

// Tenant returns the scope's tenant and true, unless the scope is
// unrestricted or empty.
func (s TenantScope) Tenant() (uuid.UUID, bool) {
	if s.unrestricted || s.tenantID == uuid.Nil {
		return uuid.Nil, false
	}
	return s.tenantID, true
}

// Empty reports the authenticated-but-tenant-less case: reads must yield
// empty result sets and writes must fail with ErrPermissionDenied.
func (s TenantScope) Empty() bool {
	return !s.unrestricted && s.tenantID == uuid.Nil
}

// ResolveScope derives the tenant scope for a principal.
func ResolveScope(p *Principal) TenantScope {
	if p == nil {
		return EmptyScope()
	}
	if p.Superuser {
		return UnrestrictedScope()
	}
	if p.TenantID == nil || *p.TenantID == uuid.Nil {
		return EmptyScope()
	}
	return ScopeFor(*p.TenantID)
}
