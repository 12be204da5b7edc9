package gateway

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Intent is the provider-agnostic result of creating a payment intent.
type Intent struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// VerifiedEvent is the parsed payload of an authenticated webhook.
type VerifiedEvent struct {
	Provider string
	Raw      []byte
}

// Gateway abstracts a payment provider. CreateIntent must never let
// provider unavailability break checkout: implementations degrade to a
// sandbox-style response on error. VerifyWebhook returns the parsed event
// and true only when the payload's authenticity is proven; anything else is
// a definite false.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error)
	VerifyWebhook(body []byte, headers http.Header) (VerifiedEvent, bool)
}

// SecretSource resolves a provider's webhook secret. Secrets are looked up
// at verification time so rotation takes effect without a restart.
type SecretSource func(provider string) string

// EnvSecrets reads provider secrets from the conventional environment
// variables (PAYTABS_SECRET, TAP_SECRET, HYPERPAY_SECRET).
func EnvSecrets(provider string) string {
	switch strings.ToLower(provider) {
	case "paytabs":
		return os.Getenv("PAYTABS_SECRET")
	case "tap":
		return os.Getenv("TAP_SECRET")
	case "hyperpay":
		return os.Getenv("HYPERPAY_SECRET")
	}
	return ""
}

// Factory resolves gateways by provider key. Unknown providers resolve to
// the deterministic sandbox so local development and tests never need
// network access or real secrets.
type Factory struct {
	secrets SecretSource
}

func NewFactory(secrets SecretSource) *Factory {
	if secrets == nil {
		secrets = EnvSecrets
	}
	return &Factory{secrets: secrets}
}

func (f *Factory) ForProvider(provider string) Gateway {
	switch strings.ToLower(provider) {
	case "stripe", "visa_mastercard":
		return NewStripeGateway(os.Getenv("STRIPE_API_KEY"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	case "paytabs":
		return NewHMACGateway("paytabs", DigestSHA256, f.secrets)
	case "tap":
		return NewHMACGateway("tap", DigestSHA256, f.secrets)
	case "hyperpay":
		// HyperPay signs with SHA-512 where the others use SHA-256; the
		// asymmetry is the providers' own and must not be normalized.
		return NewHMACGateway("hyperpay", DigestSHA512, f.secrets)
	default:
		return NewSandboxGateway()
	}
}
