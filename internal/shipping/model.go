package shipping

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// FeeRule defines the shipping fee for a zone. Rules are configured per
// tenant by owners and admins only.
type FeeRule struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	TenantID    *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	Zone        string          `json:"zone" db:"zone"`
	BaseFee     decimal.Decimal `json:"base_fee" db:"base_fee"`
	PerKmFee    decimal.Decimal `json:"per_km_fee" db:"per_km_fee"`
	MinDistance int             `json:"min_distance" db:"min_distance"`
	MaxDistance int             `json:"max_distance" db:"max_distance"`
	Active      bool            `json:"active" db:"active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// FeeFor computes the shipping fee for a distance in kilometers.
func (r FeeRule) FeeFor(distanceKm int) decimal.Decimal {
	return r.BaseFee.Add(r.PerKmFee.Mul(decimal.NewFromInt(int64(distanceKm))))
}
