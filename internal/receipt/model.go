package receipt

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is the canonical customer-facing artifact for a payment. It
// references the payment by payment_id value, not by foreign key, so the
// receipt subsystem can fail independently of the order/payment tables.
type Receipt struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	PaymentID string          `json:"payment_id" db:"payment_id"`
	TenantID  *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	InvoiceNo string          `json:"invoice_no" db:"invoice_no"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	VATAmount decimal.Decimal `json:"vat_amount" db:"vat_amount"`
	Currency  string          `json:"currency" db:"currency"`
	URL       string          `json:"url,omitempty" db:"url"`
	QRCodeURL string          `json:"qr_code_url,omitempty" db:"qr_code_url"`
	Locale    string          `json:"locale" db:"locale"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
