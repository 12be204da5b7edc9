package jobs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies a job family. Receipt generation must eventually produce
// exactly one durable artifact per payment; notifications are best-effort.
type Kind string

const (
	KindReceiptGenerate  Kind = "receipt.generate"
	KindNotifyLowStock   Kind = "notify.low_stock"
	KindNotifyOrderEvent Kind = "notify.order_status"
)

// Job is a unit of background work identified by a stable key. The runner
// guarantees at-least-once delivery; the handler owns idempotency per key.
type Job struct {
	Kind       Kind            `json:"kind"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func NewJob(kind Kind, key string, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("jobs: failed to marshal payload for %s: %w", kind, err)
	}
	return Job{Kind: kind, Key: key, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// ReceiptPayload is the payload for KindReceiptGenerate, keyed by payment_id.
type ReceiptPayload struct {
	PaymentID string `json:"payment_id"`
	TenantID  string `json:"tenant_id,omitempty"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// LowStockPayload is the payload for KindNotifyLowStock.
type LowStockPayload struct {
	TenantID    string `json:"tenant_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    string `json:"quantity"`
}

// OrderEventPayload is the payload for KindNotifyOrderEvent.
type OrderEventPayload struct {
	TenantID string `json:"tenant_id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
}
