package order_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/pos-platform/internal/order"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from order.Status
		to   order.Status
		want bool
	}{
		{order.StatusDraft, order.StatusPlaced, true},
		{order.StatusDraft, order.StatusPaid, true},
		{order.StatusDraft, order.StatusCancelled, true},
		{order.StatusPlaced, order.StatusPaid, true},
		{order.StatusPlaced, order.StatusCancelled, true},
		{order.StatusPlaced, order.StatusDraft, false},
		{order.StatusPaid, order.StatusCancelled, true},
		{order.StatusPaid, order.StatusPlaced, false},
		{order.StatusCancelled, order.StatusPaid, false},
		{order.StatusCancelled, order.StatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, order.CanTransition(tt.from, tt.to))
		})
	}
}

func TestRecalcTotals(t *testing.T) {
	t.Run("subtotal_is_sum_of_line_totals", func(t *testing.T) {
		o := order.Order{
			Items: []order.OrderItem{
				{Quantity: dec("2"), UnitPrice: dec("10.00")},
				{Quantity: dec("1.5"), UnitPrice: dec("4.00")},
			},
		}
		o.RecalcTotals()
		assert.True(t, dec("26.00").Equal(o.Subtotal), "got %s", o.Subtotal)
		assert.True(t, dec("26.00").Equal(o.Total), "got %s", o.Total)
	})

	t.Run("tax_and_shipping_are_kept_not_recomputed", func(t *testing.T) {
		o := order.Order{
			Items: []order.OrderItem{
				{Quantity: dec("4"), UnitPrice: dec("25.00")},
			},
			TaxAmount:   dec("15.00"),
			ShippingFee: dec("10.00"),
		}
		o.RecalcTotals()
		assert.True(t, dec("100.00").Equal(o.Subtotal), "got %s", o.Subtotal)
		assert.True(t, dec("125.00").Equal(o.Total), "got %s", o.Total)
		assert.True(t, dec("15.00").Equal(o.TaxAmount))
		assert.True(t, dec("10.00").Equal(o.ShippingFee))
	})

	t.Run("idempotent_over_the_same_items", func(t *testing.T) {
		o := order.Order{
			Items:     []order.OrderItem{{Quantity: dec("3"), UnitPrice: dec("7.50")}},
			TaxAmount: dec("1.00"),
		}
		o.RecalcTotals()
		first := o.Total
		o.RecalcTotals()
		assert.True(t, first.Equal(o.Total))
	})
}

func TestMarkPaid(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.Must(uuid.NewV4())

	newOrder := func(status order.Status) *order.Order {
		return &order.Order{
			ID:       uuid.Must(uuid.NewV4()),
			TenantID: &tenantID,
			Status:   status,
			Items: []order.OrderItem{
				{ProductID: uuid.Must(uuid.NewV4()), Quantity: dec("2"), UnitPrice: dec("50.00")},
			},
			Total: dec("100.00"),
		}
	}

	t.Run("placed_order_pays", func(t *testing.T) {
		o := newOrder(order.StatusPlaced)
		p, events, err := o.MarkPaid("paytabs", "SAR", now)
		require.NoError(t, err)

		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, "auto-"+o.ID.String(), p.PaymentID)
		assert.Equal(t, payment.StatusCompleted, p.Status)
		assert.True(t, dec("100.00").Equal(p.Amount))
		assert.Equal(t, "SAR", p.Currency)
		require.NotNil(t, o.PaymentID)
		assert.Equal(t, p.ID, *o.PaymentID)

		// One payment event plus one stock decrement per item.
		require.Len(t, events, 2)
		assert.Equal(t, "payment.created", events[0].EventName())
		assert.Equal(t, "stock.decrement_requested", events[1].EventName())
	})

	t.Run("second_pay_reports_already_paid", func(t *testing.T) {
		o := newOrder(order.StatusDraft)
		_, _, err := o.MarkPaid("paytabs", "SAR", now)
		require.NoError(t, err)

		_, _, err = o.MarkPaid("paytabs", "SAR", now)
		assert.ErrorIs(t, err, order.ErrOrderAlreadyPaid)
	})

	t.Run("cancelled_order_cannot_pay", func(t *testing.T) {
		o := newOrder(order.StatusCancelled)
		_, _, err := o.MarkPaid("paytabs", "SAR", now)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})

	t.Run("payment_id_is_stable_across_retries", func(t *testing.T) {
		o := newOrder(order.StatusPlaced)
		id := o.ID

		p, _, err := o.MarkPaid("paytabs", "SAR", now)
		require.NoError(t, err)

		retried := newOrder(order.StatusPlaced)
		retried.ID = id
		p2, _, err := retried.MarkPaid("paytabs", "SAR", now)
		require.NoError(t, err)

		assert.Equal(t, p.PaymentID, p2.PaymentID)
	})
}
