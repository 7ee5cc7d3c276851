package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, status, total_paid, stripe_fee_amount, currency,
	promo_code, discount_cents, paid_at, created_at`

// OrderFilter restricts order aggregation queries. Zero-valued bounds mean
// unbounded; ExcludeUser drops a single user's orders (test account filtering).
// The effective order date is paid_at when set, created_at otherwise.
type OrderFilter struct {
	From        pgtype.Timestamptz
	To          pgtype.Timestamptz
	ExcludeUser pgtype.UUID
}

const orderFilterClause = `
	status = 'PAID'
	AND ($1::timestamptz IS NULL OR COALESCE(paid_at, created_at) >= $1)
	AND ($2::timestamptz IS NULL OR COALESCE(paid_at, created_at) <= $2)
	AND ($3::uuid IS NULL OR user_id IS DISTINCT FROM $3)`

// ListPaidOrders returns all paid orders whose effective date matches the filter.
func (s *Store) ListPaidOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+orderFilterClause+`
		ORDER BY COALESCE(paid_at, created_at)`, f.From, f.To, f.ExcludeUser)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Order])
}

// ProductSalesCount pairs a product with its sold order-item count.
type ProductSalesCount struct {
	ProductID pgtype.UUID `db:"product_id"`
	Count     int64       `db:"count"`
}

// CountPaidOrderItemsByProduct groups order items of matching paid orders per product.
func (s *Store) CountPaidOrderItemsByProduct(ctx context.Context, f OrderFilter) ([]ProductSalesCount, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT oi.product_id, COUNT(*) AS count
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE `+orderFilterClause+`
		GROUP BY oi.product_id`, f.From, f.To, f.ExcludeUser)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[ProductSalesCount])
}

// CountDistinctPaidCustomers counts users with at least one matching paid order.
func (s *Store) CountDistinctPaidCustomers(ctx context.Context, f OrderFilter) (int64, error) {
	var count int64
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_id)
		FROM orders
		WHERE user_id IS NOT NULL AND `+orderFilterClause+``, f.From, f.To, f.ExcludeUser).Scan(&count)
	return count, err
}

// GetOrderByID returns a single order.
func (s *Store) GetOrderByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1`, id)
	if err != nil {
		return Order{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Order])
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]Order, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Order])
}

// CreateOrder inserts an order together with its items.
func (s *Store) CreateOrder(ctx context.Context, o Order, items []OrderItem) (Order, error) {
	if !o.ID.Valid {
		o.ID = NewUUID()
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	createdAt := pgtype.Timestamptz{}
	if !o.CreatedAt.IsZero() {
		createdAt = pgtype.Timestamptz{Time: o.CreatedAt, Valid: true}
	}
	rows, err := tx.Query(ctx, `
		INSERT INTO orders
			(id, user_id, status, total_paid, stripe_fee_amount, currency, promo_code, discount_cents, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
		RETURNING `+orderColumns,
		o.ID, o.UserID, o.Status, o.TotalPaid, o.StripeFeeAmount, o.Currency,
		o.PromoCode, o.DiscountCents, o.PaidAt, createdAt)
	if err != nil {
		return Order{}, err
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Order])
	if err != nil {
		return Order{}, err
	}
	for _, item := range items {
		if !item.ID.Valid {
			item.ID = NewUUID()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			item.ID, created.ID, item.ProductID, item.Quantity, item.UnitPriceCents); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return created, nil
}

// MarkOrderPaid transitions the order to PAID within the provided transaction.
func (s *Store) MarkOrderPaid(ctx context.Context, tx pgx.Tx, orderID pgtype.UUID, fee pgtype.Int8, paidAt pgtype.Timestamptz) (Order, error) {
	rows, err := tx.Query(ctx, `
		UPDATE orders
		SET status = 'PAID', stripe_fee_amount = $2, paid_at = COALESCE($3, now())
		WHERE id = $1
		RETURNING `+orderColumns, orderID, fee, paidAt)
	if err != nil {
		return Order{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Order])
}

// ListOrderItems returns the items of an order.
func (s *Store) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[OrderItem])
}
