package tenant

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is the isolation boundary: every tenant-owned entity carries a
// nullable reference to it. A null tenant is reserved for platform-level
// records.
type Tenant struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Active         bool            `json:"active" db:"active"`
	CommissionRate decimal.Decimal `json:"commission_rate" db:"commission_rate"`
	Currency       string          `json:"currency" db:"currency"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
