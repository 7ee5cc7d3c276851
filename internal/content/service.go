package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/comptamatch/backend-compta/internal/store"
)

// ErrNotFound is returned when a published page does not exist.
var ErrNotFound = errors.New("page not found")

// Querier captures the page and plan persistence the content service needs.
type Querier interface {
	GetPageBySlug(ctx context.Context, slug string) (store.Page, error)
	ListPages(ctx context.Context) ([]store.Page, error)
	UpsertPage(ctx context.Context, p store.Page) (store.Page, error)
	DeletePage(ctx context.Context, slug string) error
	ListActivePlans(ctx context.Context) ([]store.Plan, error)
	UpsertPlan(ctx context.Context, p store.Plan) (store.Plan, error)
}

// PageView is the JSON shape of a content page.
type PageView struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	Blocks    json.RawMessage `json:"blocks"`
	Published bool            `json:"published"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// PlanView is the JSON shape of a pricing plan.
type PlanView struct {
	ID         string          `json:"id"`
	Slug       string          `json:"slug"`
	Name       string          `json:"name"`
	PriceCents int64           `json:"priceCents"`
	Interval   string          `json:"interval"`
	Features   json.RawMessage `json:"features"`
	IsActive   bool            `json:"isActive"`
}

// Service serves editorial pages and pricing plans.
type Service struct {
	Q Querier
}

// GetPage returns a published page by slug.
func (s *Service) GetPage(ctx context.Context, slug string) (PageView, error) {
	if s == nil || s.Q == nil {
		return PageView{}, errors.New("content service not configured")
	}
	page, err := s.Q.GetPageBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PageView{}, ErrNotFound
		}
		return PageView{}, err
	}
	return pageView(page), nil
}

// ListPages returns every page, drafts included.
func (s *Service) ListPages(ctx context.Context) ([]PageView, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("content service not configured")
	}
	pages, err := s.Q.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PageView, 0, len(pages))
	for _, p := range pages {
		views = append(views, pageView(p))
	}
	return views, nil
}

// SavePage creates or replaces a page keyed by slug.
func (s *Service) SavePage(ctx context.Context, p store.Page) (PageView, error) {
	if s == nil || s.Q == nil {
		return PageView{}, errors.New("content service not configured")
	}
	saved, err := s.Q.UpsertPage(ctx, p)
	if err != nil {
		return PageView{}, err
	}
	return pageView(saved), nil
}

// DeletePage removes a page.
func (s *Service) DeletePage(ctx context.Context, slug string) error {
	if s == nil || s.Q == nil {
		return errors.New("content service not configured")
	}
	return s.Q.DeletePage(ctx, slug)
}

// ListPlans returns the active pricing plans ordered by price.
func (s *Service) ListPlans(ctx context.Context) ([]PlanView, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("content service not configured")
	}
	plans, err := s.Q.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView(p))
	}
	return views, nil
}

// SavePlan creates or replaces a plan keyed by slug.
func (s *Service) SavePlan(ctx context.Context, p store.Plan) (PlanView, error) {
	if s == nil || s.Q == nil {
		return PlanView{}, errors.New("content service not configured")
	}
	saved, err := s.Q.UpsertPlan(ctx, p)
	if err != nil {
		return PlanView{}, err
	}
	return planView(saved), nil
}

func pageView(p store.Page) PageView {
	view := PageView{
		ID:        store.UUIDString(p.ID),
		Slug:      p.Slug,
		Title:     p.Title,
		Blocks:    rawOrEmpty(p.Blocks),
		Published: p.Published,
		CreatedAt: p.CreatedAt,
	}
	if p.UpdatedAt.Valid {
		updated := p.UpdatedAt.Time
		view.UpdatedAt = &updated
	}
	return view
}

func planView(p store.Plan) PlanView {
	return PlanView{
		ID:         store.UUIDString(p.ID),
		Slug:       p.Slug,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Interval:   p.Interval,
		Features:   rawOrEmpty(p.Features),
		IsActive:   p.IsActive,
	}
}

// rawOrEmpty keeps the JSON output valid when the column is null.
func rawOrEmpty(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("[]")
	}
	return json.RawMessage(b)
}
