package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
	"github.com/vasiliy-maslov/pos-platform/internal/order"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
)

type mockRepository struct {
	createFunc       func(ctx context.Context, scope auth.TenantScope, o *order.Order) error
	getByIDFunc      func(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*order.Order, error)
	listFunc         func(ctx context.Context, scope auth.TenantScope) ([]order.Order, error)
	updateStatusFunc func(ctx context.Context, scope auth.TenantScope, id uuid.UUID, status order.Status) error
	replaceItemsFunc func(ctx context.Context, scope auth.TenantScope, o *order.Order) error
	payFunc          func(ctx context.Context, scope auth.TenantScope, id uuid.UUID, provider, currency string) (*payment.Payment, []order.Event, error)
}

func (m *mockRepository) Create(ctx context.Context, scope auth.TenantScope, o *order.Order) error {
	return m.createFunc(ctx, scope, o)
}

func (m *mockRepository) GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, scope, id)
}

func (m *mockRepository) List(ctx context.Context, scope auth.TenantScope) ([]order.Order, error) {
	return m.listFunc(ctx, scope)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, scope auth.TenantScope, id uuid.UUID, status order.Status) error {
	return m.updateStatusFunc(ctx, scope, id, status)
}

func (m *mockRepository) ReplaceItems(ctx context.Context, scope auth.TenantScope, o *order.Order) error {
	return m.replaceItemsFunc(ctx, scope, o)
}

func (m *mockRepository) Pay(ctx context.Context, scope auth.TenantScope, id uuid.UUID, provider, currency string) (*payment.Payment, []order.Event, error) {
	return m.payFunc(ctx, scope, id, provider, currency)
}

type mockSubmitter struct {
	submitted []jobs.Job
	err       error
}

func (m *mockSubmitter) Submit(_ context.Context, job jobs.Job) error {
	m.submitted = append(m.submitted, job)
	return m.err
}

func tenantPrincipal(role auth.Role) *auth.Principal {
	tenantID := uuid.Must(uuid.NewV4())
	return &auth.Principal{UserID: uuid.Must(uuid.NewV4()), Role: role, TenantID: &tenantID}
}

func TestService_Create(t *testing.T) {
	validItems := []order.OrderItem{
		{ProductID: uuid.Must(uuid.NewV4()), Quantity: dec("2"), UnitPrice: dec("10.00")},
	}

	tests := []struct {
		name    string
		order   *order.Order
		wantErr bool
	}{
		{
			name:    "no_items_rejected",
			order:   &order.Order{},
			wantErr: true,
		},
		{
			name: "zero_quantity_rejected",
			order: &order.Order{Items: []order.OrderItem{
				{ProductID: uuid.Must(uuid.NewV4()), Quantity: decimal.Zero, UnitPrice: dec("10.00")},
			}},
			wantErr: true,
		},
		{
			name: "negative_price_rejected",
			order: &order.Order{Items: []order.OrderItem{
				{ProductID: uuid.Must(uuid.NewV4()), Quantity: dec("1"), UnitPrice: dec("-1.00")},
			}},
			wantErr: true,
		},
		{
			name:    "paid_status_rejected_at_create",
			order:   &order.Order{Status: order.StatusPaid, Items: validItems},
			wantErr: true,
		},
		{
			name:  "valid_draft_created_with_totals",
			order: &order.Order{Items: validItems, TaxAmount: dec("3.00")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{
				createFunc: func(_ context.Context, _ auth.TenantScope, _ *order.Order) error { return nil },
			}
			svc := order.NewService(repo, &mockSubmitter{}, "SAR")

			created, err := svc.Create(context.Background(), tenantPrincipal(auth.RoleCashier), tt.order)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.StatusDraft, created.Status)
			assert.True(t, dec("20.00").Equal(created.Subtotal), "got %s", created.Subtotal)
			assert.True(t, dec("23.00").Equal(created.Total), "got %s", created.Total)
		})
	}
}

func TestService_SetItems(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	newItems := []order.OrderItem{
		{ProductID: uuid.Must(uuid.NewV4()), Quantity: dec("1"), UnitPrice: dec("5.00")},
	}

	tests := []struct {
		name      string
		status    order.Status
		wantErrIs error
	}{
		{name: "draft_order_updates", status: order.StatusDraft},
		{name: "paid_order_immutable", status: order.StatusPaid, wantErrIs: order.ErrOrderImmutable},
		{name: "cancelled_order_rejected", status: order.StatusCancelled, wantErrIs: order.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{
				getByIDFunc: func(_ context.Context, _ auth.TenantScope, id uuid.UUID) (*order.Order, error) {
					return &order.Order{ID: id, Status: tt.status}, nil
				},
				replaceItemsFunc: func(_ context.Context, _ auth.TenantScope, _ *order.Order) error { return nil },
			}
			svc := order.NewService(repo, &mockSubmitter{}, "SAR")

			updated, err := svc.SetItems(context.Background(), tenantPrincipal(auth.RoleManager), orderID, newItems)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.True(t, dec("5.00").Equal(updated.Subtotal))
		})
	}
}

func TestService_Pay(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	tenantID := uuid.Must(uuid.NewV4())
	paid := &payment.Payment{
		ID:        uuid.Must(uuid.NewV4()),
		PaymentID: "auto-" + orderID.String(),
		TenantID:  &tenantID,
		Status:    payment.StatusCompleted,
		Amount:    dec("125.00"),
		Currency:  "SAR",
		CreatedAt: time.Now().UTC(),
	}

	t.Run("success_submits_receipt_and_notification_jobs", func(t *testing.T) {
		var gotProvider string
		repo := &mockRepository{
			payFunc: func(_ context.Context, _ auth.TenantScope, _ uuid.UUID, provider, _ string) (*payment.Payment, []order.Event, error) {
				gotProvider = provider
				return paid, []order.Event{order.PaymentCreated{PaymentID: paid.PaymentID}}, nil
			},
		}
		submitter := &mockSubmitter{}
		svc := order.NewService(repo, submitter, "SAR")

		p, err := svc.Pay(context.Background(), tenantPrincipal(auth.RoleCashier), orderID, "")
		require.NoError(t, err)
		assert.Equal(t, "visa_mastercard", gotProvider)
		assert.Equal(t, paid.PaymentID, p.PaymentID)

		require.Len(t, submitter.submitted, 2)
		receiptJob := submitter.submitted[0]
		assert.Equal(t, jobs.KindReceiptGenerate, receiptJob.Kind)
		assert.Equal(t, paid.PaymentID, receiptJob.Key)

		var receiptPayload jobs.ReceiptPayload
		require.NoError(t, json.Unmarshal(receiptJob.Payload, &receiptPayload))
		assert.Equal(t, tenantID.String(), receiptPayload.TenantID)

		eventJob := submitter.submitted[1]
		assert.Equal(t, jobs.KindNotifyOrderEvent, eventJob.Kind)
		assert.Equal(t, orderID.String(), eventJob.Key)

		var eventPayload jobs.OrderEventPayload
		require.NoError(t, json.Unmarshal(eventJob.Payload, &eventPayload))
		assert.Equal(t, tenantID.String(), eventPayload.TenantID)
		assert.Equal(t, order.StatusPaid.String(), eventPayload.Status)
	})

	t.Run("already_paid_passes_through", func(t *testing.T) {
		repo := &mockRepository{
			payFunc: func(_ context.Context, _ auth.TenantScope, _ uuid.UUID, _, _ string) (*payment.Payment, []order.Event, error) {
				return nil, nil, order.ErrOrderAlreadyPaid
			},
		}
		submitter := &mockSubmitter{}
		svc := order.NewService(repo, submitter, "SAR")

		_, err := svc.Pay(context.Background(), tenantPrincipal(auth.RoleCashier), orderID, "paytabs")
		assert.ErrorIs(t, err, order.ErrOrderAlreadyPaid)
		assert.Empty(t, submitter.submitted)
	})

	t.Run("already_paid_returns_existing_payment", func(t *testing.T) {
		repo := &mockRepository{
			payFunc: func(_ context.Context, _ auth.TenantScope, _ uuid.UUID, _, _ string) (*payment.Payment, []order.Event, error) {
				return paid, nil, order.ErrOrderAlreadyPaid
			},
		}
		submitter := &mockSubmitter{}
		svc := order.NewService(repo, submitter, "SAR")

		p, err := svc.Pay(context.Background(), tenantPrincipal(auth.RoleCashier), orderID, "paytabs")
		assert.ErrorIs(t, err, order.ErrOrderAlreadyPaid)
		require.NotNil(t, p)
		assert.Equal(t, paid.PaymentID, p.PaymentID)
		assert.Empty(t, submitter.submitted)
	})

	t.Run("submit_failure_does_not_fail_payment", func(t *testing.T) {
		repo := &mockRepository{
			payFunc: func(_ context.Context, _ auth.TenantScope, _ uuid.UUID, _, _ string) (*payment.Payment, []order.Event, error) {
				return paid, nil, nil
			},
		}
		submitter := &mockSubmitter{err: errors.New("queue down")}
		svc := order.NewService(repo, submitter, "SAR")

		p, err := svc.Pay(context.Background(), tenantPrincipal(auth.RoleCashier), orderID, "paytabs")
		require.NoError(t, err)
		assert.Equal(t, paid.PaymentID, p.PaymentID)
	})
}

func TestService_Cancel(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("cancelled_order_cannot_cancel_again", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFunc: func(_ context.Context, _ auth.TenantScope, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: id, Status: order.StatusCancelled}, nil
			},
		}
		svc := order.NewService(repo, &mockSubmitter{}, "SAR")

		err := svc.Cancel(context.Background(), tenantPrincipal(auth.RoleManager), orderID)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})

	t.Run("placed_order_cancels_and_notifies", func(t *testing.T) {
		tenantID := uuid.Must(uuid.NewV4())
		var gotStatus order.Status
		repo := &mockRepository{
			getByIDFunc: func(_ context.Context, _ auth.TenantScope, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: id, TenantID: &tenantID, Status: order.StatusPlaced}, nil
			},
			updateStatusFunc: func(_ context.Context, _ auth.TenantScope, _ uuid.UUID, status order.Status) error {
				gotStatus = status
				return nil
			},
		}
		submitter := &mockSubmitter{}
		svc := order.NewService(repo, submitter, "SAR")

		require.NoError(t, svc.Cancel(context.Background(), tenantPrincipal(auth.RoleManager), orderID))
		assert.Equal(t, order.StatusCancelled, gotStatus)

		require.Len(t, submitter.submitted, 1)
		assert.Equal(t, jobs.KindNotifyOrderEvent, submitter.submitted[0].Kind)

		var eventPayload jobs.OrderEventPayload
		require.NoError(t, json.Unmarshal(submitter.submitted[0].Payload, &eventPayload))
		assert.Equal(t, tenantID.String(), eventPayload.TenantID)
		assert.Equal(t, order.StatusCancelled.String(), eventPayload.Status)
	})
}
