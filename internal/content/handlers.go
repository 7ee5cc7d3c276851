package content

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

// Handler exposes the public content endpoints.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

// Page serves a published page by slug.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	view, err := h.Svc.GetPage(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "page not found", nil)
			return
		}
		h.Log.Error().Err(err).Str("slug", slug).Msg("failed to load page")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load page", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Plans lists the active pricing plans.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.ListPlans(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to list plans")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list plans", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// AdminHandler exposes the back-office content endpoints.
type AdminHandler struct {
	Svc      *Service
	Validate *validator.Validate
	Log      zerolog.Logger
}

type pagePayload struct {
	Slug      string          `json:"slug" validate:"required,min=1,max=128"`
	Title     string          `json:"title" validate:"required,min=1,max=256"`
	Blocks    json.RawMessage `json:"blocks"`
	Published bool            `json:"published"`
}

type planPayload struct {
	Slug       string          `json:"slug" validate:"required,min=1,max=128"`
	Name       string          `json:"name" validate:"required,min=1,max=256"`
	PriceCents int64           `json:"priceCents" validate:"gte=0"`
	Interval   string          `json:"interval" validate:"required,oneof=month year"`
	Features   json.RawMessage `json:"features"`
	IsActive   bool            `json:"isActive"`
}

// ListPages returns every page including drafts.
func (h *AdminHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.ListPages(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to list pages")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list pages", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// SavePage creates or replaces a page.
func (h *AdminHandler) SavePage(w http.ResponseWriter, r *http.Request) {
	var payload pagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid page payload", nil)
		return
	}
	if len(payload.Blocks) > 0 && !json.Valid(payload.Blocks) {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "blocks must be valid JSON", nil)
		return
	}
	view, err := h.Svc.SavePage(r.Context(), store.Page{
		Slug:      payload.Slug,
		Title:     payload.Title,
		Blocks:    payload.Blocks,
		Published: payload.Published,
	})
	if err != nil {
		h.Log.Error().Err(err).Str("slug", payload.Slug).Msg("failed to save page")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save page", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// DeletePage removes a page by slug.
func (h *AdminHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.Svc.DeletePage(r.Context(), slug); err != nil {
		h.Log.Error().Err(err).Str("slug", slug).Msg("failed to delete page")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete page", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// SavePlan creates or replaces a pricing plan.
func (h *AdminHandler) SavePlan(w http.ResponseWriter, r *http.Request) {
	var payload planPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid plan payload", nil)
		return
	}
	if len(payload.Features) > 0 && !json.Valid(payload.Features) {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "features must be valid JSON", nil)
		return
	}
	view, err := h.Svc.SavePlan(r.Context(), store.Plan{
		Slug:       payload.Slug,
		Name:       payload.Name,
		PriceCents: payload.PriceCents,
		Interval:   payload.Interval,
		Features:   payload.Features,
		IsActive:   payload.IsActive,
	})
	if err != nil {
		h.Log.Error().Err(err).Str("slug", payload.Slug).Msg("failed to save plan")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save plan", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}
