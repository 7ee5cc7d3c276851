package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const pageColumns = `id, slug, title, blocks, published, created_at, updated_at`

// GetPageBySlug returns a published content page.
func (s *Store) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		WHERE slug = $1 AND published = TRUE`, slug)
	if err != nil {
		return Page{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Page])
}

// ListPages returns all pages for the back-office, drafts included.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Page])
}

// UpsertPage creates or replaces a content page keyed by slug.
func (s *Store) UpsertPage(ctx context.Context, p Page) (Page, error) {
	if !p.ID.Valid {
		p.ID = NewUUID()
	}
	rows, err := s.Pool.Query(ctx, `
		INSERT INTO pages (id, slug, title, blocks, published)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE
		SET title = EXCLUDED.title, blocks = EXCLUDED.blocks,
		    published = EXCLUDED.published, updated_at = now()
		RETURNING `+pageColumns,
		p.ID, p.Slug, p.Title, p.Blocks, p.Published)
	if err != nil {
		return Page{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Page])
}

// DeletePage removes a content page by slug.
func (s *Store) DeletePage(ctx context.Context, slug string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM pages WHERE slug = $1`, slug)
	return err
}
