package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const promoColumns = `id, code, is_active, target_type, product_category_id, discount_type,
	discount_value, starts_at, ends_at, max_uses, current_uses, created_at, updated_at`

// GetPromoByCode returns the promo row matching the canonical (uppercase) code.
func (s *Store) GetPromoByCode(ctx context.Context, code string) (PromoCode, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+promoColumns+`
		FROM promo_codes
		WHERE code = $1`, code)
	if err != nil {
		return PromoCode{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[PromoCode])
}

// ListPromos returns promo codes ordered by creation time, newest first.
func (s *Store) ListPromos(ctx context.Context, limit, offset int32) ([]PromoCode, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+promoColumns+`
		FROM promo_codes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[PromoCode])
}

// CreatePromo inserts a promo rule and returns the stored row.
func (s *Store) CreatePromo(ctx context.Context, p PromoCode) (PromoCode, error) {
	if !p.ID.Valid {
		p.ID = NewUUID()
	}
	rows, err := s.Pool.Query(ctx, `
		INSERT INTO promo_codes
			(id, code, is_active, target_type, product_category_id, discount_type,
			 discount_value, starts_at, ends_at, max_uses, current_uses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)
		RETURNING `+promoColumns,
		p.ID, p.Code, p.IsActive, p.TargetType, p.ProductCategoryID, p.DiscountType,
		p.DiscountValue, p.StartsAt, p.EndsAt, p.MaxUses)
	if err != nil {
		return PromoCode{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[PromoCode])
}

// UpdatePromo mutates an existing promo rule identified by its code.
func (s *Store) UpdatePromo(ctx context.Context, p PromoCode) (PromoCode, error) {
	rows, err := s.Pool.Query(ctx, `
		UPDATE promo_codes
		SET is_active = $2, target_type = $3, product_category_id = $4, discount_type = $5,
		    discount_value = $6, starts_at = $7, ends_at = $8, max_uses = $9, updated_at = now()
		WHERE code = $1
		RETURNING `+promoColumns,
		p.Code, p.IsActive, p.TargetType, p.ProductCategoryID, p.DiscountType,
		p.DiscountValue, p.StartsAt, p.EndsAt, p.MaxUses)
	if err != nil {
		return PromoCode{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[PromoCode])
}

// SettlePromoUsage records a usage row for the order and bumps the usage counter.
// The insert is idempotent per (promo, order); the counter moves only when the
// usage row is new. Runs inside a single transaction.
func (s *Store) SettlePromoUsage(ctx context.Context, tx pgx.Tx, promoID, orderID, userID pgtype.UUID, amount int64) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO promo_usages (id, promo_id, order_id, user_id, amount_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (promo_id, order_id) DO NOTHING`,
		NewUUID(), promoID, orderID, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE promo_codes SET current_uses = current_uses + 1, updated_at = now()
		WHERE id = $1`, promoID)
	return err
}
