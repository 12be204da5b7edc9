package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name      string
		principal *auth.Principal
		endpoint  string
		action    string
		want      bool
	}{
		{
			name:      "unauthenticated_denied",
			principal: nil,
			endpoint:  "orders",
			action:    "list",
			want:      false,
		},
		{
			name:      "superuser_allowed_everywhere",
			principal: &auth.Principal{Superuser: true},
			endpoint:  "shipping-fee-rules",
			action:    "create",
			want:      true,
		},
		{
			name:      "cashier_can_pay_orders",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "orders",
			action:    "pay",
			want:      true,
		},
		{
			name:      "cashier_cannot_create_shipping_fee_rule",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "shipping-fee-rules",
			action:    "create",
			want:      false,
		},
		{
			name:      "manager_cannot_delete_product",
			principal: &auth.Principal{Role: auth.RoleManager},
			endpoint:  "products",
			action:    "delete",
			want:      false,
		},
		{
			name:      "manager_can_update_product",
			principal: &auth.Principal{Role: auth.RoleManager},
			endpoint:  "products",
			action:    "update",
			want:      true,
		},
		{
			name:      "cashier_can_list_products_via_default",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "products",
			action:    "list",
			want:      true,
		},
		{
			name:      "undeclared_endpoint_allows_authenticated",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "webhook-test",
			action:    "create",
			want:      true,
		},
		{
			name:      "cashier_cannot_list_payments",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "payments",
			action:    "list",
			want:      false,
		},
		{
			name:      "cashier_can_create_payment_intent",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "payments",
			action:    "intent",
			want:      true,
		},
		{
			name:      "manager_can_list_payments",
			principal: &auth.Principal{Role: auth.RoleManager},
			endpoint:  "payments",
			action:    "list",
			want:      true,
		},
		{
			name:      "cashier_cannot_provision_users",
			principal: &auth.Principal{Role: auth.RoleCashier},
			endpoint:  "users",
			action:    "create",
			want:      false,
		},
		{
			name:      "admin_can_provision_users",
			principal: &auth.Principal{Role: auth.RoleAdmin},
			endpoint:  "users",
			action:    "create",
			want:      true,
		},
		{
			name:      "owner_denied_on_platform_tenants",
			principal: &auth.Principal{Role: auth.RoleOwner},
			endpoint:  "tenants",
			action:    "create",
			want:      false,
		},
		{
			name:      "superuser_allowed_on_platform_tenants",
			principal: &auth.Principal{Superuser: true},
			endpoint:  "tenants",
			action:    "create",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.Authorize(tt.principal, tt.endpoint, tt.action))
		})
	}
}

func TestAuthorize_PerActionOverridesDefault(t *testing.T) {
	// The per-action list fully replaces the default for that action, in
	// both directions: it can grant a role the default lacks and withhold
	// one the default grants.
	admin := &auth.Principal{Role: auth.RoleAdmin}
	cashier := &auth.Principal{Role: auth.RoleCashier}

	assert.True(t, auth.Authorize(admin, "products", "delete"))
	assert.True(t, auth.Authorize(cashier, "products", "retrieve"))
	assert.False(t, auth.Authorize(cashier, "products", "delete"))
}
