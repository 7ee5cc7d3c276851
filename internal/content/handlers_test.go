package content_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/comptamatch/backend-compta/internal/content"
	"github.com/comptamatch/backend-compta/internal/store"
)

type fakeQueries struct {
	pages map[string]store.Page
	plans []store.Plan
}

func (f *fakeQueries) GetPageBySlug(_ context.Context, slug string) (store.Page, error) {
	p, ok := f.pages[slug]
	if !ok || !p.Published {
		return store.Page{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeQueries) ListPages(_ context.Context) ([]store.Page, error) {
	out := make([]store.Page, 0, len(f.pages))
	for _, p := range f.pages {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeQueries) UpsertPage(_ context.Context, p store.Page) (store.Page, error) {
	if !p.ID.Valid {
		p.ID = store.NewUUID()
	}
	if f.pages == nil {
		f.pages = map[string]store.Page{}
	}
	f.pages[p.Slug] = p
	return p, nil
}

func (f *fakeQueries) DeletePage(_ context.Context, slug string) error {
	delete(f.pages, slug)
	return nil
}

func (f *fakeQueries) ListActivePlans(_ context.Context) ([]store.Plan, error) {
	return f.plans, nil
}

func (f *fakeQueries) UpsertPlan(_ context.Context, p store.Plan) (store.Plan, error) {
	if !p.ID.Valid {
		p.ID = store.NewUUID()
	}
	f.plans = append(f.plans, p)
	return p, nil
}

func newRouter(q *fakeQueries) chi.Router {
	svc := &content.Service{Q: q}
	handler := &content.Handler{Svc: svc, Log: zerolog.Nop()}
	admin := &content.AdminHandler{Svc: svc, Validate: validator.New(), Log: zerolog.Nop()}

	r := chi.NewRouter()
	r.Get("/pages/{slug}", handler.Page)
	r.Get("/plans", handler.Plans)
	r.Get("/admin/pages", admin.ListPages)
	r.Put("/admin/pages", admin.SavePage)
	r.Delete("/admin/pages/{slug}", admin.DeletePage)
	r.Put("/admin/plans", admin.SavePlan)
	return r
}

func TestPageEndpoints(t *testing.T) {
	q := &fakeQueries{pages: map[string]store.Page{
		"cgv": {ID: store.NewUUID(), Slug: "cgv", Title: "CGV", Blocks: []byte(`[]`), Published: true},
	}}
	r := newRouter(q)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/cgv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "CGV")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/inconnue", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSavePageValidation(t *testing.T) {
	r := newRouter(&fakeQueries{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/pages", strings.NewReader(`{"title":"Sans slug"}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/admin/pages", strings.NewReader(`{"slug":"cgv","title":"CGV","blocks":"not json"`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavePageAndDelete(t *testing.T) {
	q := &fakeQueries{}
	r := newRouter(q)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/pages", strings.NewReader(`{"slug":"cgv","title":"CGV","blocks":[{"type":"text","value":"ok"}],"published":true}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.pages, 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/pages/cgv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, q.pages)
}

func TestSavePlanRejectsUnknownInterval(t *testing.T) {
	r := newRouter(&fakeQueries{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/plans", strings.NewReader(`{"slug":"starter","name":"Starter","priceCents":900,"interval":"week"}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
