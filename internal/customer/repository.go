package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

var ErrCustomerNotFound = errors.New("customer not found")

type Repository interface {
	Create(ctx context.Context, scope auth.TenantScope, c *Customer) error
	GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, scope auth.TenantScope) ([]Customer, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, scope auth.TenantScope, c *Customer) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}
	if tenantID, ok := scope.Tenant(); ok {
		c.TenantID = &tenantID
	}

	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate customer ID: %w", err)
		}
		c.ID = id
	}
	c.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO customers (id, tenant_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query, c.ID, c.TenantID, c.Name, c.Email, c.Phone, c.CreatedAt); err != nil {
		return fmt.Errorf("repository: failed to insert customer: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Customer, error) {
	if scope.Empty() {
		return nil, ErrCustomerNotFound
	}

	query := `SELECT id, tenant_id, name, email, phone, created_at FROM customers WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var c Customer
	err := r.db.QueryRow(ctx, query, args...).Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer by id %s: %w", id, err)
	}
	return &c, nil
}

func (r *postgresRepository) List(ctx context.Context, scope auth.TenantScope) ([]Customer, error) {
	if scope.Empty() {
		return []Customer{}, nil
	}

	query := `SELECT id, tenant_id, name, email, phone, created_at FROM customers`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating customers: %w", err)
	}
	return customers, nil
}
