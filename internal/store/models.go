package store

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Product is a catalog entry sold on the storefront.
type Product struct {
	ID          pgtype.UUID        `db:"id"`
	Slug        string             `db:"slug"`
	Title       string             `db:"title"`
	Description pgtype.Text        `db:"description"`
	PriceCents  int64              `db:"price_cents"`
	CategoryID  pgtype.UUID        `db:"category_id"`
	IsActive    bool               `db:"is_active"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   pgtype.Timestamptz `db:"updated_at"`
}

// Category groups products for navigation and promo targeting.
type Category struct {
	ID   pgtype.UUID `db:"id"`
	Slug string      `db:"slug"`
	Name string      `db:"name"`
}

// PromoCode captures a discount rule managed by the promotions back-office.
type PromoCode struct {
	ID                pgtype.UUID        `db:"id"`
	Code              string             `db:"code"`
	IsActive          bool               `db:"is_active"`
	TargetType        string             `db:"target_type"`
	ProductCategoryID pgtype.UUID        `db:"product_category_id"`
	DiscountType      string             `db:"discount_type"`
	DiscountValue     int64              `db:"discount_value"`
	StartsAt          pgtype.Timestamptz `db:"starts_at"`
	EndsAt            pgtype.Timestamptz `db:"ends_at"`
	MaxUses           pgtype.Int4        `db:"max_uses"`
	CurrentUses       int32              `db:"current_uses"`
	CreatedAt         time.Time          `db:"created_at"`
	UpdatedAt         pgtype.Timestamptz `db:"updated_at"`
}

// Order is a checkout result owned by the checkout subsystem.
type Order struct {
	ID              pgtype.UUID        `db:"id"`
	UserID          pgtype.UUID        `db:"user_id"`
	Status          string             `db:"status"`
	TotalPaid       int64              `db:"total_paid"`
	StripeFeeAmount pgtype.Int8        `db:"stripe_fee_amount"`
	Currency        string             `db:"currency"`
	PromoCode       pgtype.Text        `db:"promo_code"`
	DiscountCents   int64              `db:"discount_cents"`
	PaidAt          pgtype.Timestamptz `db:"paid_at"`
	CreatedAt       time.Time          `db:"created_at"`
}

// OrderItem is a single product line within an order.
type OrderItem struct {
	ID             pgtype.UUID `db:"id"`
	OrderID        pgtype.UUID `db:"order_id"`
	ProductID      pgtype.UUID `db:"product_id"`
	Quantity       int32       `db:"quantity"`
	UnitPriceCents int64       `db:"unit_price_cents"`
}

// User is a registered customer or administrator.
type User struct {
	ID           pgtype.UUID `db:"id"`
	Email        string      `db:"email"`
	PasswordHash string      `db:"password_hash"`
	Role         string      `db:"role"`
	CreatedAt    time.Time   `db:"created_at"`
}

// AnalyticsEvent records a product interaction (view, add to cart).
type AnalyticsEvent struct {
	ID         pgtype.UUID `db:"id"`
	ProductID  pgtype.UUID `db:"product_id"`
	Type       string      `db:"type"`
	OccurredAt time.Time   `db:"occurred_at"`
}

// Page is an editorial content page managed by the back-office.
type Page struct {
	ID        pgtype.UUID        `db:"id"`
	Slug      string             `db:"slug"`
	Title     string             `db:"title"`
	Blocks    []byte             `db:"blocks"`
	Published bool               `db:"published"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt pgtype.Timestamptz `db:"updated_at"`
}

// Plan is a subscription pricing plan displayed on the storefront.
type Plan struct {
	ID         pgtype.UUID `db:"id"`
	Slug       string      `db:"slug"`
	Name       string      `db:"name"`
	PriceCents int64       `db:"price_cents"`
	Interval   string      `db:"billing_interval"`
	Features   []byte      `db:"features"`
	IsActive   bool        `db:"is_active"`
	CreatedAt  time.Time   `db:"created_at"`
}

// Analytics event types recorded by the storefront.
const (
	EventTypeView      = "view"
	EventTypeAddToCart = "add_to_cart"
)

// OrderStatusPaid is the status value marking a settled order.
const OrderStatusPaid = "PAID"

// OrderStatusPending is the status value for orders awaiting payment.
const OrderStatusPending = "PENDING"
