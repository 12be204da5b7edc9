package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTenantNotFound = errors.New("tenant not found")

// Repository is deliberately not tenant-scoped: tenants themselves are
// platform-level records managed by superusers.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, t *Tenant) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate tenant ID: %w", err)
		}
		t.ID = id
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tenants (id, name, active, commission_rate, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.Name, t.Active, t.CommissionRate, t.Currency, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert tenant: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := `
		SELECT id, name, active, commission_rate, currency, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	var t Tenant
	err := r.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Active, &t.CommissionRate, &t.Currency, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("repository: failed to select tenant by id %s: %w", id, err)
	}
	return &t, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Tenant, error) {
	query := `
		SELECT id, name, active, commission_rate, currency, created_at, updated_at
		FROM tenants
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]Tenant, 0)
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.CommissionRate, &t.Currency, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating tenants: %w", err)
	}
	return tenants, nil
}
