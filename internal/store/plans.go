package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const planColumns = `id, slug, name, price_cents, billing_interval, features, is_active, created_at`

// ListActivePlans returns the pricing plans shown on the storefront.
func (s *Store) ListActivePlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE is_active = TRUE
		ORDER BY price_cents`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Plan])
}

// UpsertPlan creates or replaces a pricing plan keyed by slug.
func (s *Store) UpsertPlan(ctx context.Context, p Plan) (Plan, error) {
	if !p.ID.Valid {
		p.ID = NewUUID()
	}
	rows, err := s.Pool.Query(ctx, `
		INSERT INTO plans (id, slug, name, price_cents, billing_interval, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, price_cents = EXCLUDED.price_cents,
		    billing_interval = EXCLUDED.billing_interval, features = EXCLUDED.features,
		    is_active = EXCLUDED.is_active
		RETURNING `+planColumns,
		p.ID, p.Slug, p.Name, p.PriceCents, p.Interval, p.Features, p.IsActive)
	if err != nil {
		return Plan{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Plan])
}
