package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
)

// LowStockHandler turns a low-stock job into a tenant notification.
func (s *Service) LowStockHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var p jobs.LowStockPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("notify: failed to decode low stock payload: %w", err)
		}
		tenantID, err := parseTenant(p.TenantID)
		if err != nil {
			return fmt.Errorf("notify: invalid tenant in low stock payload: %w", err)
		}
		title := "Low stock alert"
		message := fmt.Sprintf("Product %q is low on stock: %s left", p.ProductName, p.Quantity)
		s.Notify(ctx, tenantID, KindLowStock, title, message)
		return nil
	}
}

// OrderEventHandler turns an order status job into a tenant notification.
func (s *Service) OrderEventHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var p jobs.OrderEventPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("notify: failed to decode order event payload: %w", err)
		}
		tenantID, err := parseTenant(p.TenantID)
		if err != nil {
			return fmt.Errorf("notify: invalid tenant in order event payload: %w", err)
		}
		title := fmt.Sprintf("Order %s", p.Status)
		message := fmt.Sprintf("Order %s changed status to %s", p.OrderID, p.Status)
		s.Notify(ctx, tenantID, KindOrderStatus, title, message)
		return nil
	}
}

func parseTenant(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
