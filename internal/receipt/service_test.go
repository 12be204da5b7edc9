package receipt_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
	"github.com/vasiliy-maslov/pos-platform/internal/receipt"
)

// memoryRepository keys receipts by payment_id the way the unique constraint
// does in Postgres.
type memoryRepository struct {
	byPaymentID map[string]*receipt.Receipt
	createErr   error
	// missFirstLookup makes the first GetByPaymentID report not-found, to
	// simulate a concurrent writer landing between lookup and insert.
	missFirstLookup bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byPaymentID: make(map[string]*receipt.Receipt)}
}

func (m *memoryRepository) Create(_ context.Context, rec *receipt.Receipt) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byPaymentID[rec.PaymentID]; ok {
		return receipt.ErrReceiptExists
	}
	rec.ID = uuid.Must(uuid.NewV4())
	stored := *rec
	m.byPaymentID[rec.PaymentID] = &stored
	return nil
}

func (m *memoryRepository) GetByPaymentID(_ context.Context, paymentID string) (*receipt.Receipt, error) {
	if m.missFirstLookup {
		m.missFirstLookup = false
		return nil, receipt.ErrReceiptNotFound
	}
	rec, ok := m.byPaymentID[paymentID]
	if !ok {
		return nil, receipt.ErrReceiptNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *memoryRepository) GetByID(_ context.Context, _ auth.TenantScope, id uuid.UUID) (*receipt.Receipt, error) {
	for _, rec := range m.byPaymentID {
		if rec.ID == id {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, receipt.ErrReceiptNotFound
}

func (m *memoryRepository) List(_ context.Context, _ auth.TenantScope) ([]receipt.Receipt, error) {
	out := make([]receipt.Receipt, 0, len(m.byPaymentID))
	for _, rec := range m.byPaymentID {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memoryRepository) UpdateURLs(_ context.Context, id uuid.UUID, url, qrCodeURL string) error {
	for _, rec := range m.byPaymentID {
		if rec.ID == id {
			rec.URL = url
			rec.QRCodeURL = qrCodeURL
			return nil
		}
	}
	return receipt.ErrReceiptNotFound
}

// memoryStore records puts and mints URLs with a configurable scheme.
type memoryStore struct {
	scheme string
	puts   []string
	err    error
}

func (s *memoryStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.puts = append(s.puts, key)
	return s.scheme + key, nil
}

func (s *memoryStore) PresignGet(_ context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.scheme + key + "?signed=1", nil
}

// stubPaymentSource resolves payments the way the payments table would.
type stubPaymentSource struct {
	byPaymentID map[string]*payment.Payment
}

func (s *stubPaymentSource) GetByPaymentID(_ context.Context, _ auth.TenantScope, paymentID string) (*payment.Payment, error) {
	p, ok := s.byPaymentID[paymentID]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func TestGenerateForPayment(t *testing.T) {
	amount := decimal.RequireFromString("125.00")

	t.Run("creates_receipt_with_artifacts", func(t *testing.T) {
		repo := newMemoryRepository()
		durable := &memoryStore{scheme: "https://bucket.example/"}
		local := &memoryStore{scheme: "file:///media/"}
		svc := receipt.NewService(repo, nil, durable, local)

		tenantID := uuid.Must(uuid.NewV4())
		rec, err := svc.GenerateForPayment(context.Background(), "auto-1", &tenantID, amount, "SAR")
		require.NoError(t, err)

		assert.Equal(t, "INV-auto-1", rec.InvoiceNo)
		assert.True(t, amount.Equal(rec.Amount))
		assert.True(t, strings.HasPrefix(rec.URL, "https://"))
		assert.True(t, strings.HasPrefix(rec.QRCodeURL, "https://"))
		// QR PNG plus the receipt document.
		assert.Len(t, durable.puts, 2)
		assert.Empty(t, local.puts)

		// The stored row must carry the tenant, or tenant-scoped reads
		// could never find it again.
		stored := repo.byPaymentID["auto-1"]
		require.NotNil(t, stored.TenantID)
		assert.Equal(t, tenantID, *stored.TenantID)
	})

	t.Run("tenant_resolved_from_payment_row", func(t *testing.T) {
		repo := newMemoryRepository()
		tenantID := uuid.Must(uuid.NewV4())
		payments := &stubPaymentSource{byPaymentID: map[string]*payment.Payment{
			"auto-7": {PaymentID: "auto-7", TenantID: &tenantID, Amount: amount, Currency: "SAR"},
		}}
		svc := receipt.NewService(repo, payments, nil, &memoryStore{scheme: "file:///media/"})

		rec, err := svc.GenerateForPayment(context.Background(), "auto-7", nil, amount, "SAR")
		require.NoError(t, err)
		require.NotNil(t, rec.TenantID)
		assert.Equal(t, tenantID, *rec.TenantID)
	})

	t.Run("second_call_reuses_existing_receipt", func(t *testing.T) {
		repo := newMemoryRepository()
		durable := &memoryStore{scheme: "https://bucket.example/"}
		svc := receipt.NewService(repo, nil, durable, &memoryStore{scheme: "file:///media/"})

		first, err := svc.GenerateForPayment(context.Background(), "auto-2", nil, amount, "SAR")
		require.NoError(t, err)
		second, err := svc.GenerateForPayment(context.Background(), "auto-2", nil, amount, "SAR")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.InvoiceNo, second.InvoiceNo)
		// No second set of artifacts was uploaded.
		assert.Len(t, durable.puts, 2)
	})

	t.Run("lost_create_race_returns_winner", func(t *testing.T) {
		repo := newMemoryRepository()
		winner := &receipt.Receipt{
			ID:        uuid.Must(uuid.NewV4()),
			PaymentID: "auto-3",
			InvoiceNo: "INV-auto-3",
			Amount:    amount,
			Currency:  "SAR",
		}
		repo.byPaymentID["auto-3"] = winner
		repo.missFirstLookup = true

		svc := receipt.NewService(repo, nil, nil, &memoryStore{scheme: "file:///media/"})
		rec, err := svc.GenerateForPayment(context.Background(), "auto-3", nil, amount, "SAR")
		require.NoError(t, err)
		assert.Equal(t, winner.ID, rec.ID)
	})

	t.Run("durable_outage_falls_back_to_local", func(t *testing.T) {
		repo := newMemoryRepository()
		durable := &memoryStore{scheme: "https://bucket.example/", err: errors.New("s3 unreachable")}
		local := &memoryStore{scheme: "file:///media/"}
		svc := receipt.NewService(repo, nil, durable, local)

		rec, err := svc.GenerateForPayment(context.Background(), "auto-4", nil, amount, "SAR")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rec.URL, "file://"), "got %s", rec.URL)
		assert.Len(t, local.puts, 2)
	})

	t.Run("empty_payment_id_rejected", func(t *testing.T) {
		svc := receipt.NewService(newMemoryRepository(), nil, nil, &memoryStore{scheme: "file:///media/"})
		_, err := svc.GenerateForPayment(context.Background(), "", nil, amount, "SAR")
		assert.Error(t, err)
	})
}

func TestDownloadURL(t *testing.T) {
	amount := decimal.RequireFromString("50.00")

	t.Run("durable_receipt_is_presigned", func(t *testing.T) {
		repo := newMemoryRepository()
		durable := &memoryStore{scheme: "https://bucket.example/"}
		svc := receipt.NewService(repo, nil, durable, &memoryStore{scheme: "file:///media/"})

		rec, err := svc.GenerateForPayment(context.Background(), "auto-5", nil, amount, "SAR")
		require.NoError(t, err)

		url, err := svc.DownloadURL(context.Background(), rec)
		require.NoError(t, err)
		assert.Contains(t, url, "?signed=1")
	})

	t.Run("local_receipt_url_returned_as_is", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := receipt.NewService(repo, nil, nil, &memoryStore{scheme: "file:///media/"})

		rec, err := svc.GenerateForPayment(context.Background(), "auto-6", nil, amount, "SAR")
		require.NoError(t, err)

		url, err := svc.DownloadURL(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, rec.URL, url)
	})
}
