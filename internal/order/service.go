package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
)

type Service interface {
	Create(ctx context.Context, principal *auth.Principal, o *Order) (*Order, error)
	GetByID(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*Order, error)
	List(ctx context.Context, principal *auth.Principal) ([]Order, error)
	SetItems(ctx context.Context, principal *auth.Principal, id uuid.UUID, items []OrderItem) (*Order, error)
	Cancel(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
	Pay(ctx context.Context, principal *auth.Principal, id uuid.UUID, provider string) (*payment.Payment, error)
}

type service struct {
	repo      Repository
	submitter jobs.Submitter
	currency  string
}

func NewService(repo Repository, submitter jobs.Submitter, currency string) Service {
	if currency == "" {
		currency = "SAR"
	}
	return &service{repo: repo, submitter: submitter, currency: currency}
}

func (s *service) Create(ctx context.Context, principal *auth.Principal, o *Order) (*Order, error) {
	scope := auth.ResolveScope(principal)

	if len(o.Items) == 0 {
		return nil, errors.New("service: order must contain at least one item")
	}
	for i := range o.Items {
		item := &o.Items[i]
		if item.ProductID == uuid.Nil {
			return nil, errors.New("service: product id in order item cannot be nil")
		}
		if !item.Quantity.IsPositive() {
			return nil, fmt.Errorf("service: order item quantity for product %s must be greater than zero", item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("service: order item price for product %s cannot be negative", item.ProductID)
		}
		item.ID = uuid.Nil
		item.OrderID = uuid.Nil
	}

	o.ID = uuid.Nil
	o.PaymentID = nil
	if o.Status == "" {
		o.Status = StatusDraft
	}
	if o.Status != StatusDraft && o.Status != StatusPlaced {
		return nil, fmt.Errorf("%w: orders are created as draft or placed", ErrInvalidTransition)
	}
	o.RecalcTotals()

	if err := s.repo.Create(ctx, scope, o); err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Msg("Order created")
	return o, nil
}

func (s *service) GetByID(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, auth.ResolveScope(principal), id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) List(ctx context.Context, principal *auth.Principal) ([]Order, error) {
	orders, err := s.repo.List(ctx, auth.ResolveScope(principal))
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

// SetItems replaces the item list of a not-yet-paid order and recalculates
// totals.
func (s *service) SetItems(ctx context.Context, principal *auth.Principal, id uuid.UUID, items []OrderItem) (*Order, error) {
	scope := auth.ResolveScope(principal)

	o, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusPaid {
		return nil, ErrOrderImmutable
	}
	if o.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: cancelled order cannot be modified", ErrInvalidTransition)
	}

	o.Items = items
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	o.RecalcTotals()

	if err := s.repo.ReplaceItems(ctx, scope, o); err != nil {
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to replace order items")
		return nil, fmt.Errorf("service: failed to replace order items: %w", err)
	}
	return o, nil
}

func (s *service) Cancel(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	scope := auth.ResolveScope(principal)

	o, err := s.repo.GetByID(ctx, scope, id)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, o.Status)
	}
	if err := s.repo.UpdateStatus(ctx, scope, id, StatusCancelled); err != nil {
		return err
	}

	s.submitOrderEvent(ctx, o.TenantID, id, StatusCancelled)
	return nil
}

// submitOrderEvent enqueues a status-change notification. The transition has
// already been committed, so a submit failure is logged and swallowed.
func (s *service) submitOrderEvent(ctx context.Context, tenantID *uuid.UUID, orderID uuid.UUID, status Status) {
	tenant := ""
	if tenantID != nil {
		tenant = tenantID.String()
	}
	job, err := jobs.NewJob(jobs.KindNotifyOrderEvent, orderID.String(), jobs.OrderEventPayload{
		TenantID: tenant,
		OrderID:  orderID.String(),
		Status:   string(status),
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to build order event job")
		return
	}
	if err := s.submitter.Submit(ctx, job); err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("Failed to submit order event job")
	}
}

// Pay executes the atomic pay transition and, after commit, submits receipt
// generation keyed by the payment id. The submitter is expected to degrade
// to inline execution when the queue is down; either way a submit failure
// never propagates to the caller, because the payment has already been
// committed.
func (s *service) Pay(ctx context.Context, principal *auth.Principal, id uuid.UUID, provider string) (*payment.Payment, error) {
	scope := auth.ResolveScope(principal)

	if provider == "" {
		provider = "visa_mastercard"
	}

	p, events, err := s.repo.Pay(ctx, scope, id, provider, s.currency)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderAlreadyPaid):
			// p, when present, is the payment the first attempt recorded.
			return p, err
		case errors.Is(err, ErrOrderNotFound),
			errors.Is(err, ErrInvalidTransition),
			errors.Is(err, auth.ErrPermissionDenied):
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: pay transaction failed")
		return nil, fmt.Errorf("service: failed to pay order: %w", err)
	}

	for _, ev := range events {
		log.Debug().Str("event", ev.EventName()).Stringer("order_id", id).Msg("Domain event emitted")
	}

	tenantID := ""
	if p.TenantID != nil {
		tenantID = p.TenantID.String()
	}
	job, err := jobs.NewJob(jobs.KindReceiptGenerate, p.PaymentID, jobs.ReceiptPayload{
		PaymentID: p.PaymentID,
		TenantID:  tenantID,
		Amount:    p.Amount.String(),
		Currency:  p.Currency,
	})
	if err != nil {
		log.Error().Err(err).Str("payment_id", p.PaymentID).Msg("Failed to build receipt job")
		return p, nil
	}
	if err := s.submitter.Submit(ctx, job); err != nil {
		log.Error().Err(err).Str("payment_id", p.PaymentID).Msg("Failed to submit receipt job")
	}

	s.submitOrderEvent(ctx, p.TenantID, id, StatusPaid)

	log.Info().Stringer("order_id", id).Str("payment_id", p.PaymentID).Msg("Order paid")
	return p, nil
}
