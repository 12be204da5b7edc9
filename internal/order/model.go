package order

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPlaced    Status = "placed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusPlaced:    true,
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPlaced: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusCancelled: true,
	},
	StatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TenantID    *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty" db:"customer_id"`
	Status      Status          `json:"status" db:"status"`
	Items       []OrderItem     `json:"items" db:"-"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	ShippingFee decimal.Decimal `json:"shipping_fee" db:"shipping_fee"`
	Total       decimal.Decimal `json:"total" db:"total"`
	PaymentID   *uuid.UUID      `json:"payment_id,omitempty" db:"payment_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// RecalcTotals recomputes subtotal from the item list and total from
// subtotal plus the stored tax and shipping amounts. Tax and shipping are
// owned by their own calculators and deliberately left untouched here.
// The function is pure over the current item list: re-running it always
// yields the same totals.
func (o *Order) RecalcTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.TaxAmount).Add(o.ShippingFee)
}

// Event is a domain event emitted by an aggregate operation, for the caller
// to persist or enqueue alongside the state change.
type Event interface {
	EventName() string
}

type PaymentCreated struct {
	OrderID   uuid.UUID
	PaymentID string
	Amount    decimal.Decimal
	Provider  string
}

func (PaymentCreated) EventName() string { return "payment.created" }

type StockDecrementRequested struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

func (StockDecrementRequested) EventName() string { return "stock.decrement_requested" }

// MarkPaid performs the pay transition in memory: it builds the Payment
// record, flips the order to paid, and returns the events the transaction
// must apply. The payment_id is derived from the order identity so that
// retried pays of the same order collide on the unique constraint instead
// of minting a second payment.
func (o *Order) MarkPaid(provider, currency string, now time.Time) (*payment.Payment, []Event, error) {
	if o.Status == StatusPaid {
		return nil, nil, ErrOrderAlreadyPaid
	}
	if !CanTransition(o.Status, StatusPaid) {
		return nil, nil, fmt.Errorf("%w: cannot pay order in status %s", ErrInvalidTransition, o.Status)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, nil, fmt.Errorf("order: failed to generate payment id: %w", err)
	}

	p := &payment.Payment{
		ID:        id,
		PaymentID: "auto-" + o.ID.String(),
		TenantID:  o.TenantID,
		Provider:  provider,
		Status:    payment.StatusCompleted,
		Amount:    o.Total,
		Currency:  currency,
		CreatedAt: now,
	}

	o.Status = StatusPaid
	o.PaymentID = &p.ID
	o.UpdatedAt = now

	events := []Event{
		PaymentCreated{OrderID: o.ID, PaymentID: p.PaymentID, Amount: p.Amount, Provider: provider},
	}
	for _, item := range o.Items {
		events = append(events, StockDecrementRequested{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return p, events, nil
}
