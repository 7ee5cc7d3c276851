package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, slug, title, description, price_cents, category_id, is_active, created_at, updated_at`

// ListActiveProductsByIDs returns active products matching the provided identifiers.
func (s *Store) ListActiveProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]Product, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1) AND is_active = TRUE`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Product])
}

// ListProducts returns the catalog ordered by title, optionally restricted to active rows.
func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1::boolean = FALSE OR is_active = TRUE)
		ORDER BY title`, activeOnly)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Product])
}

// GetProductBySlug returns a single product by its slug.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE slug = $1`, slug)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
}

// CreateProduct inserts a catalog entry and returns the stored row.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if !p.ID.Valid {
		p.ID = NewUUID()
	}
	rows, err := s.Pool.Query(ctx, `
		INSERT INTO products (id, slug, title, description, price_cents, category_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		p.ID, p.Slug, p.Title, p.Description, p.PriceCents, p.CategoryID, p.IsActive)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
}

// UpdateProduct mutates an existing catalog entry and returns the stored row.
func (s *Store) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	rows, err := s.Pool.Query(ctx, `
		UPDATE products
		SET slug = $2, title = $3, description = $4, price_cents = $5,
		    category_id = $6, is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Slug, p.Title, p.Description, p.PriceCents, p.CategoryID, p.IsActive)
	if err != nil {
		return Product{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
}

// DeactivateProduct retires a product from the storefront without deleting rows.
func (s *Store) DeactivateProduct(ctx context.Context, id pgtype.UUID) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE products SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	return err
}

// ListCategories returns all product categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, slug, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Category])
}

// CreateCategory inserts a category used for navigation and promo targeting.
func (s *Store) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if !c.ID.Valid {
		c.ID = NewUUID()
	}
	rows, err := s.Pool.Query(ctx, `
		INSERT INTO categories (id, slug, name) VALUES ($1, $2, $3)
		RETURNING id, slug, name`, c.ID, c.Slug, c.Name)
	if err != nil {
		return Category{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Category])
}
