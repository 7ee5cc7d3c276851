package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	Svc *Service
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	views, err := h.Svc.ListProducts(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// ProductDetail handles GET /api/v1/products/{slug}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	view, err := h.Svc.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	views, err := h.Svc.ListCategories(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list categories", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// AdminQuerier is the store surface the back-office endpoints depend on.
type AdminQuerier interface {
	CreateProduct(ctx context.Context, p store.Product) (store.Product, error)
	UpdateProduct(ctx context.Context, p store.Product) (store.Product, error)
	DeactivateProduct(ctx context.Context, id pgtype.UUID) error
	CreateCategory(ctx context.Context, c store.Category) (store.Category, error)
}

// AdminHandler exposes the catalog back-office endpoints.
type AdminHandler struct {
	S        AdminQuerier
	Svc      *Service
	Validate *validator.Validate
}

type productPayload struct {
	Slug        string  `json:"slug" validate:"required,min=2,max=128"`
	Title       string  `json:"title" validate:"required,min=2,max=256"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"priceCents" validate:"gte=0"`
	CategoryID  *string `json:"categoryId" validate:"omitempty,uuid"`
	IsActive    *bool   `json:"isActive"`
}

type categoryPayload struct {
	Slug string `json:"slug" validate:"required,min=2,max=128"`
	Name string `json:"name" validate:"required,min=2,max=256"`
}

func (h *AdminHandler) buildProduct(payload productPayload) (store.Product, error) {
	p := store.Product{
		Slug:        payload.Slug,
		Title:       payload.Title,
		Description: store.ToText(payload.Description),
		PriceCents:  payload.PriceCents,
		IsActive:    true,
	}
	if payload.IsActive != nil {
		p.IsActive = *payload.IsActive
	}
	if payload.CategoryID != nil {
		id, err := store.ToUUID(*payload.CategoryID)
		if err != nil {
			return store.Product{}, errors.New("invalid categoryId")
		}
		p.CategoryID = id
	}
	return p, nil
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	p, err := h.buildProduct(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.S.CreateProduct(r.Context(), p)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "slug already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create product", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusCreated, map[string]any{"data": productView(created)})
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	id, err := store.ToUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	p, err := h.buildProduct(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	p.ID = id
	updated, err := h.S.UpdateProduct(r.Context(), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update product", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": productView(updated)})
}

// DeactivateProduct handles DELETE /api/v1/admin/products/{id}. Products are
// never hard-deleted; paid orders keep referencing them.
func (h *AdminHandler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	id, err := store.ToUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.S.DeactivateProduct(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to deactivate product", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	created, err := h.S.CreateCategory(r.Context(), store.Category{Slug: payload.Slug, Name: payload.Name})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "slug already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create category", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusCreated, map[string]any{"data": CategoryView{
		ID:   store.UUIDString(created.ID),
		Slug: created.Slug,
		Name: created.Name,
	}})
}

func (h *AdminHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func (h *AdminHandler) invalidate(r *http.Request) {
	if h.Svc != nil {
		h.Svc.InvalidateCache(r.Context())
	}
}
