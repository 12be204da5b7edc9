package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
	"github.com/vasiliy-maslov/pos-platform/internal/storage"
)

type Service interface {
	GenerateForPayment(ctx context.Context, paymentID string, tenantID *uuid.UUID, amount decimal.Decimal, currency string) (*Receipt, error)
	GetByID(ctx context.Context, principal *auth.Principal, id string) (*Receipt, error)
	List(ctx context.Context, principal *auth.Principal) ([]Receipt, error)
	DownloadURL(ctx context.Context, rec *Receipt) (string, error)
}

// PaymentSource resolves the owning tenant when a job payload carries none,
// as with provider webhooks.
type PaymentSource interface {
	GetByPaymentID(ctx context.Context, scope auth.TenantScope, paymentID string) (*payment.Payment, error)
}

type service struct {
	repo     Repository
	payments PaymentSource
	durable  storage.BlobStore
	fallback storage.BlobStore
}

// NewService wires the receipt generator. payments and durable may be nil
// (no payment lookup, no S3 configured); fallback must always be present.
func NewService(repo Repository, payments PaymentSource, durable, fallback storage.BlobStore) Service {
	return &service{repo: repo, payments: payments, durable: durable, fallback: fallback}
}

// GenerateForPayment creates the canonical receipt for a payment, or
// returns the existing one. The payment_id keys the idempotency: a retried
// or duplicated job finds the prior receipt and produces no second
// customer-visible artifact. Artifact upload prefers durable storage and
// degrades to the local store, whose file:// URLs flag degraded mode.
func (s *service) GenerateForPayment(ctx context.Context, paymentID string, tenantID *uuid.UUID, amount decimal.Decimal, currency string) (*Receipt, error) {
	if paymentID == "" {
		return nil, errors.New("receipt: payment_id is required")
	}
	if currency == "" {
		currency = "SAR"
	}

	existing, err := s.repo.GetByPaymentID(ctx, paymentID)
	if err == nil {
		log.Info().Str("payment_id", paymentID).Msg("Receipt already exists, reusing")
		return existing, nil
	}
	if !errors.Is(err, ErrReceiptNotFound) {
		return nil, err
	}

	// Webhook payloads carry no tenant; the payments row does. A receipt
	// stored without its tenant would be invisible to every tenant-scoped
	// query.
	if tenantID == nil && s.payments != nil {
		p, err := s.payments.GetByPaymentID(ctx, auth.UnrestrictedScope(), paymentID)
		if err == nil {
			tenantID = p.TenantID
		} else if !errors.Is(err, payment.ErrPaymentNotFound) {
			return nil, err
		}
	}

	rec := &Receipt{
		PaymentID: paymentID,
		TenantID:  tenantID,
		InvoiceNo: "INV-" + paymentID,
		Amount:    amount,
		Currency:  currency,
		Locale:    "en",
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrReceiptExists) {
			// Lost a race with a concurrent attempt for the same payment:
			// the winner's receipt is the canonical one.
			return s.repo.GetByPaymentID(ctx, paymentID)
		}
		return nil, err
	}

	qrPNG, err := qrcode.Encode("invoice:"+rec.InvoiceNo, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("receipt: failed to encode QR code: %w", err)
	}
	doc := renderDocument(rec)

	qrURL, err := s.put(ctx, fmt.Sprintf("receipts/qr_%s.png", rec.InvoiceNo), qrPNG, "image/png")
	if err != nil {
		return nil, err
	}
	docURL, err := s.put(ctx, fmt.Sprintf("receipts/%s.html", rec.InvoiceNo), doc, "text/html")
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateURLs(ctx, rec.ID, docURL, qrURL); err != nil {
		return nil, err
	}
	rec.URL = docURL
	rec.QRCodeURL = qrURL

	log.Info().Str("payment_id", paymentID).Str("invoice_no", rec.InvoiceNo).Str("url", docURL).Msg("Receipt generated")
	return rec, nil
}

func (s *service) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.durable != nil {
		url, err := s.durable.Put(ctx, key, data, contentType)
		if err == nil {
			return url, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Durable storage unavailable, falling back to local store")
	}

	url, err := s.fallback.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("receipt: failed to store artifact %s: %w", key, err)
	}
	return url, nil
}

func renderDocument(rec *Receipt) []byte {
	return []byte(fmt.Sprintf(
		"<html><body><h1>Receipt %s</h1><p>Payment: %s</p><p>Amount: %s %s</p></body></html>",
		rec.InvoiceNo, rec.PaymentID, rec.Amount.StringFixed(2), rec.Currency,
	))
}

func (s *service) GetByID(ctx context.Context, principal *auth.Principal, id string) (*Receipt, error) {
	parsed, err := uuid.FromString(id)
	if err != nil {
		return nil, ErrReceiptNotFound
	}
	return s.repo.GetByID(ctx, auth.ResolveScope(principal), parsed)
}

func (s *service) List(ctx context.Context, principal *auth.Principal) ([]Receipt, error) {
	return s.repo.List(ctx, auth.ResolveScope(principal))
}

// DownloadURL returns a presigned URL for durable receipts, or the stored
// URL as-is for local ones.
func (s *service) DownloadURL(ctx context.Context, rec *Receipt) (string, error) {
	if rec.URL == "" {
		return "", ErrReceiptNotFound
	}
	if s.durable == nil || strings.HasPrefix(rec.URL, "file://") {
		return rec.URL, nil
	}
	return s.durable.PresignGet(ctx, fmt.Sprintf("receipts/%s.html", rec.InvoiceNo))
}
