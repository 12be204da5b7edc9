package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/http"

	"github.com/shopspring/decimal"
)

// SignatureHeader carries the hex HMAC digest on inbound webhooks.
const SignatureHeader = "X-Payment-Signature"

type Digest int

const (
	DigestSHA256 Digest = iota
	DigestSHA512
)

func (d Digest) newHash() func() hash.Hash {
	if d == DigestSHA512 {
		return sha512.New
	}
	return sha256.New
}

// HMACGateway covers the HMAC-signing providers. Intent creation has no
// remote implementation for these providers, so it delegates to the
// embedded sandbox; webhook verification is the real work.
type HMACGateway struct {
	sandbox  SandboxGateway
	provider string
	digest   Digest
	secrets  SecretSource
}

func NewHMACGateway(provider string, digest Digest, secrets SecretSource) *HMACGateway {
	if secrets == nil {
		secrets = EnvSecrets
	}
	return &HMACGateway{
		sandbox:  NewSandboxGateway(),
		provider: provider,
		digest:   digest,
		secrets:  secrets,
	}
}

func (g *HMACGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	return g.sandbox.CreateIntent(ctx, amount, currency, metadata)
}

// VerifyWebhook computes HMAC(secret, body) with the provider's digest,
// hex-encodes it, and compares it against the signature header in constant
// time. A missing secret or signature is an authentication failure, never a
// silent accept.
func (g *HMACGateway) VerifyWebhook(body []byte, headers http.Header) (VerifiedEvent, bool) {
	secret := g.secrets(g.provider)
	signature := headers.Get(SignatureHeader)
	if secret == "" || signature == "" {
		return VerifiedEvent{}, false
	}

	mac := hmac.New(g.digest.newHash(), []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return VerifiedEvent{}, false
	}
	return VerifiedEvent{Provider: g.provider, Raw: body}, true
}
