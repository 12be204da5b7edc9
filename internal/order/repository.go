package order

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
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/payment"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAlreadyPaid  = errors.New("order is already paid")
	ErrOrderImmutable    = errors.New("paid order cannot be modified")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type Repository interface {
	Create(ctx context.Context, scope auth.TenantScope, o *Order) error
	GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Order, error)
	List(ctx context.Context, scope auth.TenantScope) ([]Order, error)
	UpdateStatus(ctx context.Context, scope auth.TenantScope, id uuid.UUID, status Status) error
	ReplaceItems(ctx context.Context, scope auth.TenantScope, o *Order) error
	Pay(ctx context.Context, scope auth.TenantScope, id uuid.UUID, provider, currency string) (*payment.Payment, []Event, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, scope auth.TenantScope, o *Order) (err error) {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}
	// The resolver's tenant wins over anything the client supplied.
	if tenantID, ok := scope.Tenant(); ok {
		o.TenantID = &tenantID
	}

	if o.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = genID
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (id, tenant_id, customer_id, status, subtotal, tax_amount, shipping_fee, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID, o.TenantID, o.CustomerID, string(o.Status),
		o.Subtotal, o.TaxAmount, o.ShippingFee, o.Total,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	err = insertItems(ctx, tx, o)
	return err
}

func insertItems(ctx context.Context, tx pgx.Tx, o *Order) error {
	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range o.Items {
		item := &o.Items[i]

		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		item.ID = itemID
		item.OrderID = o.ID

		if _, err := tx.Exec(ctx, queryItem, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}
	return nil
}

const orderColumns = `id, tenant_id, customer_id, status, subtotal, tax_amount, shipping_fee, total, payment_id, created_at, updated_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.TenantID, &o.CustomerID, &o.Status,
		&o.Subtotal, &o.TaxAmount, &o.ShippingFee, &o.Total,
		&o.PaymentID, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *postgresRepository) GetByID(ctx context.Context, scope auth.TenantScope, id uuid.UUID) (*Order, error) {
	if scope.Empty() {
		return nil, ErrOrderNotFound
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}

	var o Order
	if err := scanOrder(r.db.QueryRow(ctx, query, args...), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *postgresRepository) loadItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %s: %w", orderID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %s: %w", orderID, err)
	}
	return items, nil
}

func (r *postgresRepository) List(ctx context.Context, scope auth.TenantScope) ([]Order, error) {
	// Tenant-less principals see an empty collection, never an error.
	if scope.Empty() {
		return []Order{}, nil
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if tenantID, ok := scope.Tenant(); ok {
		query += ` WHERE tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]OrderItem, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
	`
	itemRows, err := r.db.Query(ctx, itemsQuery, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if o, ok := ordersMap[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, scope auth.TenantScope, id uuid.UUID, status Status) error {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}

	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	args := []any{string(status), time.Now().UTC(), id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $4`
		args = append(args, tenantID)
	}

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ReplaceItems swaps the order's item list and persists the recalculated
// totals. The caller must have invoked RecalcTotals first.
func (r *postgresRepository) ReplaceItems(ctx context.Context, scope auth.TenantScope, o *Order) (err error) {
	if scope.Empty() {
		return auth.ErrPermissionDenied
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("repository: failed to delete order items for order %s: %w", o.ID, err)
	}
	if err = insertItems(ctx, tx, o); err != nil {
		return err
	}

	query := `UPDATE orders SET subtotal = $1, total = $2, updated_at = $3 WHERE id = $4`
	args := []any{o.Subtotal, o.Total, time.Now().UTC(), o.ID}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $5`
		args = append(args, tenantID)
	}
	var cmdTag pgconn.CommandTag
	cmdTag, err = tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update order totals for %s: %w", o.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrOrderNotFound
	}
	return err
}

// Pay runs the full pay transition in one transaction: lock the order row,
// re-check the already-paid precondition under the lock, create the payment,
// flip the order, and decrement stock per item. Stock decrements are
// best-effort: each runs in its own savepoint so a bad product row cannot
// poison the transaction that has already recorded the payment.
func (r *postgresRepository) Pay(ctx context.Context, scope auth.TenantScope, id uuid.UUID, provider, currency string) (p *payment.Payment, events []Event, err error) {
	if scope.Empty() {
		return nil, nil, auth.ErrPermissionDenied
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return nil, nil, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", id).Msg("Failed to rollback pay transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			p, events = nil, nil
			err = fmt.Errorf("repository: failed to commit pay transaction: %w", commitErr)
		}
	}()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	args := []any{id}
	if tenantID, ok := scope.Tenant(); ok {
		query += ` AND tenant_id = $2`
		args = append(args, tenantID)
	}
	query += ` FOR UPDATE`

	var o Order
	if err = scanOrder(tx.QueryRow(ctx, query, args...), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrOrderNotFound
			return nil, nil, err
		}
		err = fmt.Errorf("repository: failed to lock order %s: %w", id, err)
		return nil, nil, err
	}

	itemsQuery := `SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE order_id = $1`
	rows, itemsErr := tx.Query(ctx, itemsQuery, id)
	if itemsErr != nil {
		err = fmt.Errorf("repository: failed to query order items for pay %s: %w", id, itemsErr)
		return nil, nil, err
	}
	o.Items = make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err = rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			rows.Close()
			err = fmt.Errorf("repository: failed to scan order item for pay %s: %w", id, err)
			return nil, nil, err
		}
		o.Items = append(o.Items, item)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("repository: error iterating order items for pay %s: %w", id, err)
		return nil, nil, err
	}

	p, events, err = o.MarkPaid(provider, currency, time.Now().UTC())
	if err != nil {
		// Re-pay of a settled order surfaces the original payment so the
		// caller learns what the first attempt produced.
		if errors.Is(err, ErrOrderAlreadyPaid) && o.PaymentID != nil {
			if existing, lookupErr := r.paymentByID(ctx, tx, *o.PaymentID); lookupErr == nil {
				return existing, nil, err
			} else {
				log.Warn().Err(lookupErr).Stringer("order_id", id).Msg("Failed to load existing payment for paid order")
			}
		}
		return nil, nil, err
	}

	insertPayment := `
		INSERT INTO payments (id, payment_id, tenant_id, provider, status, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, insertPayment, p.ID, p.PaymentID, p.TenantID, p.Provider, string(p.Status), p.Amount, p.Currency, p.CreatedAt)
	if err != nil {
		// Unique constraint on payment_id is the backstop for races the row
		// lock did not arbitrate (e.g. a replayed transaction).
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = ErrOrderAlreadyPaid
			return nil, nil, err
		}
		err = fmt.Errorf("repository: failed to insert payment for order %s: %w", id, err)
		return nil, nil, err
	}

	updateOrder := `UPDATE orders SET status = $1, payment_id = $2, updated_at = $3 WHERE id = $4`
	if _, err = tx.Exec(ctx, updateOrder, string(o.Status), p.ID, o.UpdatedAt, o.ID); err != nil {
		err = fmt.Errorf("repository: failed to mark order %s paid: %w", id, err)
		return nil, nil, err
	}

	for _, item := range o.Items {
		if decErr := r.decrementStock(ctx, tx, item); decErr != nil {
			// Money has already moved: log and continue.
			log.Warn().Err(decErr).
				Stringer("order_id", id).
				Stringer("product_id", item.ProductID).
				Msg("Best-effort stock decrement failed")
		}
	}

	return p, events, nil
}

func (r *postgresRepository) paymentByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT id, payment_id, tenant_id, provider, status, amount, currency, created_at FROM payments WHERE id = $1`

	var p payment.Payment
	err := tx.QueryRow(ctx, query, id).Scan(&p.ID, &p.PaymentID, &p.TenantID, &p.Provider, &p.Status,
		&p.Amount, &p.Currency, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select payment %s: %w", id, err)
	}
	return &p, nil
}

// decrementStock clamps quantity at zero inside a savepoint so that a
// failure rolls back only itself.
func (r *postgresRepository) decrementStock(ctx context.Context, tx pgx.Tx, item OrderItem) error {
	inner, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to open savepoint: %w", err)
	}
	_, err = inner.Exec(ctx,
		`UPDATE products SET quantity = GREATEST(quantity - $1, 0), updated_at = $2 WHERE id = $3`,
		item.Quantity, time.Now().UTC(), item.ProductID,
	)
	if err != nil {
		if rbErr := inner.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Stringer("product_id", item.ProductID).Msg("Failed to rollback stock savepoint")
		}
		return fmt.Errorf("repository: failed to decrement stock for product %s: %w", item.ProductID, err)
	}
	return inner.Commit(ctx)
}
