package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
)

type Service interface {
	Create(ctx context.Context, principal *auth.Principal, p *Product) (*Product, error)
	GetByID(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*Product, error)
	List(ctx context.Context, principal *auth.Principal) ([]Product, error)
	Update(ctx context.Context, principal *auth.Principal, p *Product) error
	Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error
	CheckLowStock(ctx context.Context, scope auth.TenantScope) (int, error)
}

type service struct {
	repo      Repository
	submitter jobs.Submitter
}

func NewService(repo Repository, submitter jobs.Submitter) Service {
	return &service{repo: repo, submitter: submitter}
}

func (s *service) Create(ctx context.Context, principal *auth.Principal, p *Product) (*Product, error) {
	if p.Name == "" {
		return nil, errors.New("service: product name is required")
	}
	if p.Price.IsNegative() {
		return nil, errors.New("service: product price cannot be negative")
	}
	if p.Quantity.IsNegative() {
		return nil, errors.New("service: product quantity cannot be negative")
	}

	if err := s.repo.Create(ctx, auth.ResolveScope(principal), p); err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}
	return p, nil
}

func (s *service) GetByID(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*Product, error) {
	return s.repo.GetByID(ctx, auth.ResolveScope(principal), id)
}

func (s *service) List(ctx context.Context, principal *auth.Principal) ([]Product, error) {
	return s.repo.List(ctx, auth.ResolveScope(principal))
}

func (s *service) Update(ctx context.Context, principal *auth.Principal, p *Product) error {
	return s.repo.Update(ctx, auth.ResolveScope(principal), p)
}

func (s *service) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	return s.repo.Delete(ctx, auth.ResolveScope(principal), id)
}

// CheckLowStock enqueues one low-stock notification job per product at or
// below its threshold, and returns how many were found. Run periodically by
// the worker tier.
func (s *service) CheckLowStock(ctx context.Context, scope auth.TenantScope) (int, error) {
	products, err := s.repo.ListLowStock(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("service: failed to list low-stock products: %w", err)
	}

	for _, p := range products {
		tenantID := ""
		if p.TenantID != nil {
			tenantID = p.TenantID.String()
		}
		job, err := jobs.NewJob(jobs.KindNotifyLowStock, p.ID.String(), jobs.LowStockPayload{
			TenantID:    tenantID,
			ProductID:   p.ID.String(),
			ProductName: p.Name,
			Quantity:    p.Quantity.String(),
		})
		if err != nil {
			log.Error().Err(err).Stringer("product_id", p.ID).Msg("Failed to build low-stock job")
			continue
		}
		if err := s.submitter.Submit(ctx, job); err != nil {
			log.Warn().Err(err).Stringer("product_id", p.ID).Msg("Failed to submit low-stock job")
		}
	}
	return len(products), nil
}
