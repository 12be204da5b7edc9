package receipt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrReceiptExists   = errors.New("receipt already exists for payment")
)

type Repository interface {
	Create(ctx context.Context, r *Receipt) error
	GetByPaymentID(ctx context.Context, paymentID string) (*Receipt, error)
	GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Receipt, error)
	List(ctx context.Context, scope auth.TenantScope) ([]Receipt, error)
	UpdateURLs(ctx context.Context, id uuid.UUID, url, qrCodeURL string) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const receiptColumns = `id, payment_id, tenant_id, invoice_no, amount, vat_amount, currency, url, qr_code_url, locale, created_at`

func scanReceipt(row pgx.Row, rec *Receipt) error {
	return row.Scan(&rec.ID, &rec.PaymentID, &rec.TenantID, &rec.InvoiceNo, &rec.Amount,
		&rec.VATAmount, &rec.Currency, &rec.URL, &rec.QRCodeURL, &rec.Locale, &rec.CreatedAt)
}

func (r *postgresRepository) Create(ctx context.Context, rec *Receipt) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate receipt ID: %w", err)
		}
		rec.ID = id
	}
	rec.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO receipts (id, payment_id, tenant_id, invoice_no, amount, vat_amount, currency, url, qr_code_url, locale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.PaymentID, rec.TenantID, rec.InvoiceNo, rec.Amount,
		rec.VATAmount, rec.Currency, rec.URL, rec.QRCodeURL, rec.Locale, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrReceiptExists
		}
		return fmt.Errorf("repository: failed to insert receipt: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByPaymentID(ctx context.Context, paymentID string) (*Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE payment_id = $1`

	var rec Receipt
	if err := scanReceipt(r.db.QueryRow(ctx, query, paymentID), &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("repository: failed to select receipt for payment %s: %w", paymentID, err)
	}
	return &rec, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Receipt, error) {
	if scope.Empty() {
		return nil, ErrReceiptNotFound
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var rec Receipt
	if err := scanReceipt(r.db.QueryRow(ctx, query, args...), &rec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("repository: failed to select receipt %s: %w", id, err)
	}
	return &rec, nil
}

func (r *postgresRepository) List(ctx context.Context, scope auth.TenantScope) ([]Receipt, error) {
	if scope.Empty() {
		return []Receipt{}, nil
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]Receipt, 0)
	for rows.Next() {
		var rec Receipt
		if err := scanReceipt(rows, &rec); err != nil {
			return nil, fmt.Errorf("repository: failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating receipts: %w", err)
	}
	return receipts, nil
}

func (r *postgresRepository) UpdateURLs(ctx context.Context, id uuid.UUID, url, qrCodeURL string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE receipts SET url = $1, qr_code_url = $2 WHERE id = $3`,
		url, qrCodeURL, id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update receipt urls %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}
