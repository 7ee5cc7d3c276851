package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/store"
)

type stubAdminQuerier struct {
	products   map[string]store.Product
	categories map[string]store.Category
}

func newStubAdminQuerier() *stubAdminQuerier {
	return &stubAdminQuerier{
		products:   map[string]store.Product{},
		categories: map[string]store.Category{},
	}
}

func (s *stubAdminQuerier) CreateProduct(_ context.Context, p store.Product) (store.Product, error) {
	if _, exists := s.products[p.Slug]; exists {
		return store.Product{}, &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}
	}
	p.ID = store.NewUUID()
	s.products[p.Slug] = p
	return p, nil
}

func (s *stubAdminQuerier) UpdateProduct(_ context.Context, p store.Product) (store.Product, error) {
	s.products[p.Slug] = p
	return p, nil
}

func (s *stubAdminQuerier) DeactivateProduct(_ context.Context, _ pgtype.UUID) error {
	return nil
}

func (s *stubAdminQuerier) CreateCategory(_ context.Context, c store.Category) (store.Category, error) {
	if _, exists := s.categories[c.Slug]; exists {
		return store.Category{}, &pgconn.PgError{Code: "23505", ConstraintName: "product_categories_slug_key"}
	}
	c.ID = store.NewUUID()
	s.categories[c.Slug] = c
	return c, nil
}

func TestCreateProductDuplicateSlugIsConflict(t *testing.T) {
	h := &AdminHandler{S: newStubAdminQuerier(), Validate: validator.New()}
	body := `{"slug":"compta-pro","title":"Compta Pro","priceCents":14900}`

	rec := httptest.NewRecorder()
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCategoryDuplicateSlugIsConflict(t *testing.T) {
	h := &AdminHandler{S: newStubAdminQuerier(), Validate: validator.New()}
	body := `{"slug":"logiciels","name":"Logiciels"}`

	rec := httptest.NewRecorder()
	h.CreateCategory(rec, httptest.NewRequest(http.MethodPost, "/admin/categories", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.CreateCategory(rec, httptest.NewRequest(http.MethodPost, "/admin/categories", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}
