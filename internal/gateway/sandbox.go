package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// SandboxSignHeader and SandboxSignValue are the fixed test-signature pair
// the sandbox accepts in place of a cryptographic check.
const (
	SandboxSignHeader = "X-Sandbox-Sign"
	SandboxSignValue  = "ok"
)

// SandboxGateway fabricates intents deterministically and accepts a single
// fixed signature header. Real gateways embed one by value and delegate to
// it when the remote provider fails.
type SandboxGateway struct{}

func NewSandboxGateway() SandboxGateway {
	return SandboxGateway{}
}

func (SandboxGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string, _ map[string]string) (Intent, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Intent{}, fmt.Errorf("gateway: failed to generate sandbox intent id: %w", err)
	}
	secret, err := uuid.NewV4()
	if err != nil {
		return Intent{}, fmt.Errorf("gateway: failed to generate sandbox client secret: %w", err)
	}
	return Intent{
		ID:           "sandbox_" + hex.EncodeToString(id.Bytes())[:8],
		ClientSecret: "sandbox_secret_" + hex.EncodeToString(secret.Bytes()),
		Amount:       amount,
		Currency:     currency,
	}, nil
}

func (SandboxGateway) VerifyWebhook(body []byte, headers http.Header) (VerifiedEvent, bool) {
	if headers.Get(SandboxSignHeader) != SandboxSignValue {
		return VerifiedEvent{}, false
	}
	return VerifiedEvent{Provider: "sandbox", Raw: body}, true
}
