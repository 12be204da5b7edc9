package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindLowStock    Kind = "low_stock"
	KindOrderStatus Kind = "order_status"
)

// Notification is an in-app message for a tenant's staff. Delivery to
// external channels (email, push) is best-effort on top of this record.
type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Kind      Kind       `json:"kind" db:"kind"`
	Title     string     `json:"title" db:"title"`
	Message   string     `json:"message" db:"message"`
	Read      bool       `json:"read" db:"read"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate notification ID: %w", err)
		}
		n.ID = id
	}
	n.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO notifications (id, tenant_id, kind, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(ctx, query, n.ID, n.TenantID, string(n.Kind), n.Title, n.Message, n.Read, n.CreatedAt); err != nil {
		return fmt.Errorf("repository: failed to insert notification: %w", err)
	}
	return nil
}

// Service dispatches best-effort notifications. A failed dispatch is
// logged and dropped; it never propagates into the business operation that
// triggered it.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Notify(ctx context.Context, tenantID *uuid.UUID, kind Kind, title, message string) {
	n := &Notification{TenantID: tenantID, Kind: kind, Title: title, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Best-effort notification dispatch failed")
		return
	}
	log.Debug().Str("kind", string(kind)).Str("title", title).Msg("Notification dispatched")
}
