package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/cart"
	"github.com/comptamatch/backend-compta/internal/obs"
	"github.com/comptamatch/backend-compta/internal/promo"
	"github.com/comptamatch/backend-compta/internal/store"
)

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

// ErrAmountMismatch indicates a settlement amount that does not match the order.
var ErrAmountMismatch = errors.New("settlement amount mismatch")

// Publisher fans order lifecycle events out to live subscribers.
type Publisher interface {
	Publish(topic string, payload any)
}

// TopicOrderPaid is the stream topic emitted when an order settles.
const TopicOrderPaid = "order_paid"

// Querier is the store surface the order lifecycle depends on.
type Querier interface {
	CreateOrder(ctx context.Context, o store.Order, items []store.OrderItem) (store.Order, error)
	GetOrderByID(ctx context.Context, id pgtype.UUID) (store.Order, error)
	MarkOrderPaid(ctx context.Context, tx pgx.Tx, orderID pgtype.UUID, fee pgtype.Int8, paidAt pgtype.Timestamptz) (store.Order, error)
	GetPromoByCode(ctx context.Context, code string) (store.PromoCode, error)
	SettlePromoUsage(ctx context.Context, tx pgx.Tx, promoID, orderID, userID pgtype.UUID, amount int64) error
}

// TxBeginner opens the transaction settlement runs in. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Service owns order creation and settlement.
type Service struct {
	Q      Querier
	DB     TxBeginner
	Stream Publisher
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout creates a pending order from a priced cart.
func (s *Service) Checkout(ctx context.Context, userID pgtype.UUID, comp cart.Computation, app *promo.Application) (store.Order, error) {
	if s == nil || s.Q == nil {
		return store.Order{}, errors.New("order service not configured")
	}
	o := store.Order{
		UserID:   userID,
		Status:   store.OrderStatusPending,
		Currency: "EUR",
	}
	o.TotalPaid = comp.TotalCents
	if app != nil {
		o.PromoCode = pgtype.Text{String: app.Rule.Code, Valid: true}
		o.DiscountCents = app.DiscountCents
		o.TotalPaid = comp.TotalCents - app.DiscountCents
	}
	items := make([]store.OrderItem, 0, len(comp.Items))
	for _, it := range comp.Items {
		p, ok := comp.Products[it.ProductID]
		if !ok {
			return store.Order{}, fmt.Errorf("unpriced line item %s", it.ProductID)
		}
		items = append(items, store.OrderItem{
			ProductID:      p.ID,
			Quantity:       int32(it.Quantity),
			UnitPriceCents: p.PriceCents,
		})
	}
	return s.Q.CreateOrder(ctx, o, items)
}

// FinalizePaid marks an order as settled and records promo usage in the same
// transaction. Settling twice is harmless: an already paid order is returned
// as-is, and the usage insert is keyed on (promo, order) so the counter only
// moves on first insert.
func (s *Service) FinalizePaid(ctx context.Context, orderID pgtype.UUID, fee pgtype.Int8) (store.Order, error) {
	if s == nil || s.Q == nil || s.DB == nil {
		return store.Order{}, errors.New("order service not configured")
	}
	existing, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, ErrNotFound
		}
		return store.Order{}, fmt.Errorf("load order for settlement: %w", err)
	}
	if existing.Status == store.OrderStatusPaid {
		return existing, nil
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.Order{}, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	paidAt := pgtype.Timestamptz{Time: s.now(), Valid: true}
	o, err := s.Q.MarkOrderPaid(ctx, tx, orderID, fee, paidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, ErrNotFound
		}
		return store.Order{}, fmt.Errorf("mark order paid: %w", err)
	}

	if o.PromoCode.Valid && o.PromoCode.String != "" {
		rule, err := s.Q.GetPromoByCode(ctx, promo.CanonicalCode(o.PromoCode.String))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, fmt.Errorf("load promo for settlement: %w", err)
		}
		if err == nil {
			if err := s.Q.SettlePromoUsage(ctx, tx, rule.ID, o.ID, o.UserID, o.DiscountCents); err != nil {
				return store.Order{}, fmt.Errorf("settle promo usage: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Order{}, fmt.Errorf("commit settlement: %w", err)
	}
	if obs.OrdersPaidTotal != nil {
		obs.OrdersPaidTotal.Inc()
	}
	if s.Stream != nil {
		s.Stream.Publish(TopicOrderPaid, map[string]any{
			"orderId":    store.UUIDString(o.ID),
			"totalCents": o.TotalPaid,
			"currency":   o.Currency,
		})
	}
	return o, nil
}
