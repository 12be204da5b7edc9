package receipt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
)

// GenerateHandler adapts the receipt service to the job runner. Decode
// failures are permanent and must not be retried; they are returned as
// errors only so the runner logs them against the job key.
func GenerateHandler(svc Service) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var p jobs.ReceiptPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("receipt: failed to decode payload: %w", err)
		}

		amount := decimal.Zero
		if p.Amount != "" {
			parsed, err := decimal.NewFromString(p.Amount)
			if err != nil {
				return fmt.Errorf("receipt: invalid amount %q in payload: %w", p.Amount, err)
			}
			amount = parsed
		}

		var tenantID *uuid.UUID
		if p.TenantID != "" {
			parsed, err := uuid.FromString(p.TenantID)
			if err != nil {
				return fmt.Errorf("receipt: invalid tenant_id %q in payload: %w", p.TenantID, err)
			}
			tenantID = &parsed
		}

		if _, err := svc.GenerateForPayment(ctx, p.PaymentID, tenantID, amount, p.Currency); err != nil {
			return err
		}
		return nil
	}
}
