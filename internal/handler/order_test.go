package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/handler"
	"github.com/vasiliy-maslov/pos-platform/internal/order"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
	"github.com/vasiliy-maslov/pos-platform/internal/shipping"
)

type mockOrderService struct {
	createFunc   func(ctx context.Context, principal *auth.Principal, o *order.Order) (*order.Order, error)
	getByIDFunc  func(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*order.Order, error)
	listFunc     func(ctx context.Context, principal *auth.Principal) ([]order.Order, error)
	setItemsFunc func(ctx context.Context, principal *auth.Principal, id uuid.UUID, items []order.OrderItem) (*order.Order, error)
	cancelFunc   func(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
	payFunc      func(ctx context.Context, principal *auth.Principal, id uuid.UUID, provider string) (*payment.Payment, error)
}

func (m *mockOrderService) Create(ctx context.Context, principal *auth.Principal, o *order.Order) (*order.Order, error) {
	return m.createFunc(ctx, principal, o)
}

func (m *mockOrderService) GetByID(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, principal, id)
}

func (m *mockOrderService) List(ctx context.Context, principal *auth.Principal) ([]order.Order, error) {
	return m.listFunc(ctx, principal)
}

func (m *mockOrderService) SetItems(ctx context.Context, principal *auth.Principal, id uuid.UUID, items []order.OrderItem) (*order.Order, error) {
	return m.setItemsFunc(ctx, principal, id, items)
}

func (m *mockOrderService) Cancel(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	return m.cancelFunc(ctx, principal, id)
}

func (m *mockOrderService) Pay(ctx context.Context, principal *auth.Principal, id uuid.UUID, provider string) (*payment.Payment, error) {
	return m.payFunc(ctx, principal, id, provider)
}

func asPrincipal(req *http.Request, p *auth.Principal) *http.Request {
	if p == nil {
		return req
	}
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

func cashier() *auth.Principal {
	tenantID := uuid.Must(uuid.NewV4())
	return &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: auth.RoleCashier, TenantID: &tenantID}
}

func TestOrderHandler_Pay(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("cashier_pays_and_gets_payment_id", func(t *testing.T) {
		svc := &mockOrderService{
			payFunc: func(_ context.Context, _ *auth.Principal, id uuid.UUID, provider string) (*payment.Payment, error) {
				assert.Equal(t, orderID, id)
				return &payment.Payment{
					PaymentID: "auto-" + id.String(),
					Status:    payment.StatusCompleted,
					Amount:    decimal.RequireFromString("125.00"),
					Currency:  "SAR",
				}, nil
			},
		}
		router := chi.NewRouter()
		handler.NewOrderHandler(svc).RegisterRoutes(router)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/pay", nil), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "paid", resp["status"])
		assert.Equal(t, "auto-"+orderID.String(), resp["payment_id"])
	})

	t.Run("already_paid_is_conflict", func(t *testing.T) {
		svc := &mockOrderService{
			payFunc: func(_ context.Context, _ *auth.Principal, _ uuid.UUID, _ string) (*payment.Payment, error) {
				return nil, order.ErrOrderAlreadyPaid
			},
		}
		router := chi.NewRouter()
		handler.NewOrderHandler(svc).RegisterRoutes(router)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/pay", nil), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("already_paid_conflict_carries_original_payment_id", func(t *testing.T) {
		svc := &mockOrderService{
			payFunc: func(_ context.Context, _ *auth.Principal, id uuid.UUID, _ string) (*payment.Payment, error) {
				return &payment.Payment{
					PaymentID: "auto-" + id.String(),
					Status:    payment.StatusCompleted,
				}, order.ErrOrderAlreadyPaid
			},
		}
		router := chi.NewRouter()
		handler.NewOrderHandler(svc).RegisterRoutes(router)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/pay", nil), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "auto-"+orderID.String(), resp["payment_id"])
	})

	t.Run("unauthenticated_is_forbidden", func(t *testing.T) {
		router := chi.NewRouter()
		handler.NewOrderHandler(&mockOrderService{}).RegisterRoutes(router)

		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/pay", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("not_found_order", func(t *testing.T) {
		svc := &mockOrderService{
			payFunc: func(_ context.Context, _ *auth.Principal, _ uuid.UUID, _ string) (*payment.Payment, error) {
				return nil, order.ErrOrderNotFound
			},
		}
		router := chi.NewRouter()
		handler.NewOrderHandler(svc).RegisterRoutes(router)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/pay", nil), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("valid_order_created", func(t *testing.T) {
		svc := &mockOrderService{
			createFunc: func(_ context.Context, _ *auth.Principal, o *order.Order) (*order.Order, error) {
				o.ID = uuid.Must(uuid.NewV4())
				o.Status = order.StatusDraft
				o.RecalcTotals()
				return o, nil
			},
		}
		router := chi.NewRouter()
		handler.NewOrderHandler(svc).RegisterRoutes(router)

		payload := map[string]any{
			"items": []map[string]string{
				{"product_id": uuid.Must(uuid.NewV4()).String(), "quantity": "2", "unit_price": "50.00"},
			},
			"tax_amount":   "15.00",
			"shipping_fee": "10.00",
		}
		body, err := json.Marshal(payload)
		require.NoError(t, err)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.True(t, decimal.RequireFromString("125.00").Equal(created.Total), "got %s", created.Total)
	})

	t.Run("zero_quantity_rejected", func(t *testing.T) {
		router := chi.NewRouter()
		handler.NewOrderHandler(&mockOrderService{}).RegisterRoutes(router)

		payload := map[string]any{
			"items": []map[string]string{
				{"product_id": uuid.Must(uuid.NewV4()).String(), "quantity": "0", "unit_price": "50.00"},
			},
		}
		body, err := json.Marshal(payload)
		require.NoError(t, err)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing_items_fails_validation", func(t *testing.T) {
		router := chi.NewRouter()
		handler.NewOrderHandler(&mockOrderService{}).RegisterRoutes(router)

		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`{}`))), cashier())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// The worked RBAC pair: a cashier may take payment on an order, yet the same
// cashier is forbidden from shipping fee configuration.
func TestRBAC_CashierPaysButCannotConfigureShipping(t *testing.T) {
	principal := cashier()

	orderSvc := &mockOrderService{
		payFunc: func(_ context.Context, _ *auth.Principal, id uuid.UUID, _ string) (*payment.Payment, error) {
			return &payment.Payment{PaymentID: "auto-" + id.String(), Status: payment.StatusCompleted}, nil
		},
	}
	router := chi.NewRouter()
	handler.NewOrderHandler(orderSvc).RegisterRoutes(router)
	handler.NewShippingHandler(&stubShippingRepo{}).RegisterRoutes(router)

	payReq := asPrincipal(httptest.NewRequest(http.MethodPost, "/orders/"+uuid.Must(uuid.NewV4()).String()+"/pay", nil), principal)
	payRec := httptest.NewRecorder()
	router.ServeHTTP(payRec, payReq)
	assert.Equal(t, http.StatusOK, payRec.Code)

	ruleBody := []byte(`{"zone":"riyadh","base_fee":"10.00"}`)
	ruleReq := asPrincipal(httptest.NewRequest(http.MethodPost, "/shipping-fee-rules", bytes.NewReader(ruleBody)), principal)
	ruleRec := httptest.NewRecorder()
	router.ServeHTTP(ruleRec, ruleReq)
	assert.Equal(t, http.StatusForbidden, ruleRec.Code)
}

type stubShippingRepo struct{}

func (stubShippingRepo) Create(_ context.Context, _ auth.TenantScope, _ *shipping.FeeRule) error {
	return nil
}

func (stubShippingRepo) List(_ context.Context, _ auth.TenantScope) ([]shipping.FeeRule, error) {
	return nil, nil
}

func (stubShippingRepo) Delete(_ context.Context, _ auth.TenantScope, _ uuid.UUID) error {
	return nil
}
