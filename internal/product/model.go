package product

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	TenantID          *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	Name              string          `json:"name" db:"name"`
	SKU               string          `json:"sku" db:"sku"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Quantity          decimal.Decimal `json:"quantity" db:"quantity"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold" db:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// LowOnStock reports whether the product is at or below its alert
// threshold. A zero threshold disables alerting.
func (p Product) LowOnStock() bool {
	if p.LowStockThreshold.IsZero() {
		return false
	}
	return p.Quantity.LessThanOrEqual(p.LowStockThreshold)
}
