package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/comptamatch/backend-compta/internal/store"
)

// ErrNotFound indicates the requested catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Cache keys for public catalog payloads.
const (
	cacheKeyProducts   = "catalog:products"
	cacheKeyCategories = "catalog:categories"
)

// ProductView is the public product representation.
type ProductView struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"priceCents"`
	CategoryID  string `json:"categoryId,omitempty"`
}

// CategoryView is the public category representation.
type CategoryView struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type queryProvider interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]store.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (store.Product, error)
	ListCategories(ctx context.Context) ([]store.Category, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	Q     queryProvider
	Cache *Cache
}

// ListProducts returns the active catalog, served from cache when warm.
func (s *Service) ListProducts(ctx context.Context) ([]ProductView, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []ProductView
	if ok, _ := s.Cache.GetJSON(ctx, cacheKeyProducts, &cached); ok {
		return cached, nil
	}
	rows, err := s.Q.ListProducts(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	views := make([]ProductView, 0, len(rows))
	for _, p := range rows {
		views = append(views, productView(p))
	}
	_ = s.Cache.SetJSON(ctx, cacheKeyProducts, views)
	return views, nil
}

// GetProduct returns one active product by slug.
func (s *Service) GetProduct(ctx context.Context, slug string) (ProductView, error) {
	if s == nil || s.Q == nil {
		return ProductView{}, errors.New("catalog service not configured")
	}
	p, err := s.Q.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductView{}, ErrNotFound
		}
		return ProductView{}, err
	}
	return productView(p), nil
}

// ListCategories returns all categories, served from cache when warm.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []CategoryView
	if ok, _ := s.Cache.GetJSON(ctx, cacheKeyCategories, &cached); ok {
		return cached, nil
	}
	rows, err := s.Q.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	views := make([]CategoryView, 0, len(rows))
	for _, c := range rows {
		views = append(views, CategoryView{
			ID:   store.UUIDString(c.ID),
			Slug: c.Slug,
			Name: c.Name,
		})
	}
	_ = s.Cache.SetJSON(ctx, cacheKeyCategories, views)
	return views, nil
}

// InvalidateCache drops the public catalog payloads after an admin mutation.
func (s *Service) InvalidateCache(ctx context.Context) {
	if s == nil {
		return
	}
	s.Cache.Invalidate(ctx, cacheKeyProducts, cacheKeyCategories)
}

func productView(p store.Product) ProductView {
	return ProductView{
		ID:          store.UUIDString(p.ID),
		Slug:        p.Slug,
		Title:       p.Title,
		Description: store.TextString(p.Description),
		PriceCents:  p.PriceCents,
		CategoryID:  store.UUIDString(p.CategoryID),
	}
}
