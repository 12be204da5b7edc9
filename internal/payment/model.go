package payment

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment is created once per paid order. PaymentID is the globally unique
// idempotency key carried by all downstream side effects.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	PaymentID string          `json:"payment_id" db:"payment_id"`
	TenantID  *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	Provider  string          `json:"provider" db:"provider"`
	Status    Status          `json:"status" db:"status"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Currency  string          `json:"currency" db:"currency"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
