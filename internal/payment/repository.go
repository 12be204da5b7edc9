package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Repository interface {
	GetByPaymentID(ctx context.Context, scope auth.TenantScope, paymentID string) (*Payment, error)
	List(ctx context.Context, scope auth.TenantScope) ([]Payment, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByPaymentID(ctx context.Context, scope auth.TenantScope, paymentID string) (*Payment, error) {
	if scope.Empty() {
		return nil, ErrPaymentNotFound
	}

	query := `
		SELECT id, payment_id, tenant_id, provider, status, amount, currency, created_at
		FROM payments
		WHERE payment_id = $1
	`
	args := []any{paymentID}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var p Payment
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.PaymentID, &p.TenantID, &p.Provider, &p.Status, &p.Amount, &p.Currency, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("repository: failed to select payment %s: %w", paymentID, err)
	}
	return &p, nil
}

func (r *postgresRepository) List(ctx context.Context, scope auth.TenantScope) ([]Payment, error) {
	if scope.Empty() {
		return []Payment{}, nil
	}

	query := `
		SELECT id, payment_id, tenant_id, provider, status, amount, currency, created_at
		FROM payments
	`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PaymentID, &p.TenantID, &p.Provider, &p.Status, &p.Amount, &p.Currency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating payments: %w", err)
	}
	return payments, nil
}
