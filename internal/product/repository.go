package product

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

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	Create(ctx context.Context, scope auth.TenantScope, p *Product) error
	GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Product, error)
	List(ctx context.Context, scope auth.TenantScope) ([]Product, error)
	Update(ctx context.Context, scope auth.TenantScope, p *Product) error
	Delete(ctx context.Context, scope auth.TenantScope, id uuid.UUID) error
	ListLowStock(ctx context.Context, scope auth.TenantScope) ([]Product, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, tenant_id, name, sku, price, quantity, low_stock_threshold, created_at, updated_at`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(&p.ID, &p.TenantID, &p.Name, &p.SKU, &p.Price, &p.Quantity, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt)
}

func (r *postgresRepository) Create(ctx context.Context, scope auth.TenantScope, p *Product) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}
	if tenantID, ok := scope.Tenant(); ok {
		p.TenantID = &tenantID
	}

	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, tenant_id, name, sku, price, quantity, low_stock_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.TenantID, p.Name, p.SKU, p.Price, p.Quantity, p.LowStockThreshold, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Product, error) {
	if scope.Empty() {
		return nil, ErrProductNotFound
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var p Product
	if err := scanProduct(r.db.QueryRow(ctx, query, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) List(ctx context.Context, scope auth.TenantScope) ([]Product, error) {
	if scope.Empty() {
		return []Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY name`

	return r.queryProducts(ctx, query, args...)
}

func (r *postgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) Update(ctx context.Context, scope auth.TenantScope, p *Product) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}

	query := `
		UPDATE products
		SET name = $1, sku = $2, price = $3, quantity = $4, low_stock_threshold = $5, updated_at = $6
		WHERE id = $7
	`
	args := []any{p.Name, p.SKU, p.Price, p.Quantity, p.LowStockThreshold, time.Now().UTC(), p.ID}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $8`
		args = append(args, tenantID)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, scope auth.TenantScope, id uuid.UUID) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}

	query := `DELETE FROM products WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) ListLowStock(ctx context.Context, scope auth.TenantScope) ([]Product, error) {
	if scope.Empty() {
		return []Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE low_stock_threshold > 0 AND quantity <= low_stock_threshold`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY name`

	return r.queryProducts(ctx, query, args...)
}
