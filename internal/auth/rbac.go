package auth

// Policy declares which roles may reach an endpoint. PerAction entries
// fully override the Default list for that action; there is no merging.
type Policy struct {
	Default   []Role
	PerAction map[string][]Role
}

// Policies is the platform-wide RBAC table keyed by endpoint name.
// An endpoint with no entry here allows any authenticated principal.
var Policies = map[string]Policy{
	"orders": {
		Default: []Role{RoleOwner, RoleAdmin, RoleManager, RoleCashier},
		PerAction: map[string][]Role{
			"pay":    {RoleCashier, RoleManager, RoleAdmin, RoleOwner},
			"create": {RoleCashier, RoleManager, RoleAdmin, RoleOwner},
		},
	},
	"products": {
		Default: []Role{RoleOwner, RoleAdmin, RoleManager, RoleCashier},
		PerAction: map[string][]Role{
			"create": {RoleOwner, RoleAdmin, RoleManager},
			"update": {RoleOwner, RoleAdmin, RoleManager},
			"delete": {RoleOwner, RoleAdmin},
		},
	},
	"customers": {
		Default: []Role{RoleOwner, RoleAdmin, RoleManager, RoleCashier},
	},
	// Cashiers take payments but must not browse them.
	"payments": {
		Default: []Role{RoleOwner, RoleAdmin, RoleManager},
		PerAction: map[string][]Role{
			"intent": {RoleOwner, RoleAdmin, RoleManager, RoleCashier},
		},
	},
	// Staff accounts are provisioned by tenant administrators (or
	// superusers); the handler pins the new account to the creator's tenant.
	"users": {
		Default: []Role{RoleOwner, RoleAdmin},
	},
	"shipping-fee-rules": {
		Default: []Role{RoleOwner, RoleAdmin},
	},
	"tax-rates": {
		Default: []Role{RoleOwner, RoleAdmin, RoleManager},
	},
	// Platform-level tenant administration. The empty role list means no
	// tenant role qualifies; only superusers pass.
	"tenants": {
		Default: []Role{},
	},
}

// Authorize decides whether the principal may perform action on endpoint.
// Precedence, first match wins: unauthenticated deny; superuser allow;
// per-action list; endpoint default; no declared policy allows any
// authenticated principal.
func Authorize(p *Principal, endpoint, action string) bool {
	if p == nil {
		return false
	}
	if p.Superuser {
		return true
	}

	policy, declared := Policies[endpoint]
	if !declared {
		return true
	}

	if roles, ok := policy.PerAction[action]; ok {
		return roleIn(p.Role, roles)
	}

	if policy.Default == nil {
		return true
	}
	return roleIn(p.Role, policy.Default)
}

func roleIn(r Role, roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
