package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

var ErrRuleNotFound = errors.New("shipping fee rule not found")

type Repository interface {
	Create(ctx context.Context, scope auth.TenantScope, rule *FeeRule) error
	List(ctx context.Context, scope auth.TenantScope) ([]FeeRule, error)
	Delete(ctx context.Context, scope auth.TenantScope, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, scope auth.TenantScope, rule *FeeRule) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}
	if tenantID, ok := scope.Tenant(); ok {
		rule.TenantID = &tenantID
	}

	if rule.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate rule ID: %w", err)
		}
		rule.ID = id
	}
	rule.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO shipping_fee_rules (id, tenant_id, zone, base_fee, per_km_fee, min_distance, max_distance, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query, rule.ID, rule.TenantID, rule.Zone, rule.BaseFee, rule.PerKmFee,
		rule.MinDistance, rule.MaxDistance, rule.Active, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert shipping fee rule: %w", err)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, scope auth.TenantScope) ([]FeeRule, error) {
	if scope.Empty() {
		return []FeeRule{}, nil
	}

	query := `
		SELECT id, tenant_id, zone, base_fee, per_km_fee, min_distance, max_distance, active, created_at
		FROM shipping_fee_rules
	`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY zone`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query shipping fee rules: %w", err)
	}
	defer rows.Close()

	rules := make([]FeeRule, 0)
	for rows.Next() {
		var rule FeeRule
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.Zone, &rule.BaseFee, &rule.PerKmFee,
			&rule.MinDistance, &rule.MaxDistance, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan shipping fee rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating shipping fee rules: %w", err)
	}
	return rules, nil
}

func (r *postgresRepository) Delete(ctx context.Context, scope auth.TenantScope, id uuid.UUID) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}

	query := `DELETE FROM shipping_fee_rules WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to delete shipping fee rule %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}
