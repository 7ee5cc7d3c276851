package promo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

// AdminQuerier is the store surface the admin endpoints depend on.
type AdminQuerier interface {
	CreatePromo(ctx context.Context, p store.PromoCode) (store.PromoCode, error)
	UpdatePromo(ctx context.Context, p store.PromoCode) (store.PromoCode, error)
	ListPromos(ctx context.Context, limit, offset int32) ([]store.PromoCode, error)
}

// Handler exposes administrative promo management endpoints.
type Handler struct {
	S        AdminQuerier
	Svc      *Service
	Validate *validator.Validate
}

type promoPayload struct {
	Code              string     `json:"code" validate:"required,min=2,max=32"`
	IsActive          *bool      `json:"isActive"`
	TargetType        string     `json:"targetType" validate:"omitempty,oneof=ALL PRODUCT CATEGORY"`
	ProductCategoryID *string    `json:"productCategoryId" validate:"omitempty,uuid"`
	DiscountType      string     `json:"discountType" validate:"required,oneof=PERCENT AMOUNT"`
	DiscountValue     int64      `json:"discountValue" validate:"gte=0"`
	StartsAt          *time.Time `json:"startsAt"`
	EndsAt            *time.Time `json:"endsAt"`
	MaxUses           *int32     `json:"maxUses" validate:"omitempty,gt=0"`
}

type previewRequest struct {
	Code           string           `json:"code" validate:"required"`
	TotalCents     int64            `json:"totalCents" validate:"gt=0"`
	Context        string           `json:"context" validate:"omitempty,oneof=PRODUCT SUBSCRIPTION"`
	CategoryTotals map[string]int64 `json:"categoryTotals"`
}

func (h *Handler) buildModel(payload promoPayload) (store.PromoCode, error) {
	if payload.DiscountType == DiscountPercent && payload.DiscountValue > 100 {
		return store.PromoCode{}, errors.New("percent discount cannot exceed 100")
	}
	model := store.PromoCode{
		Code:          CanonicalCode(payload.Code),
		IsActive:      true,
		TargetType:    string(ParseTargetType(payload.TargetType)),
		DiscountType:  payload.DiscountType,
		DiscountValue: payload.DiscountValue,
		StartsAt:      store.ToTimestamptz(payload.StartsAt),
		EndsAt:        store.ToTimestamptz(payload.EndsAt),
	}
	if payload.IsActive != nil {
		model.IsActive = *payload.IsActive
	}
	if payload.ProductCategoryID != nil {
		id, err := store.ToUUID(*payload.ProductCategoryID)
		if err != nil {
			return store.PromoCode{}, errors.New("invalid productCategoryId")
		}
		model.ProductCategoryID = id
	}
	if payload.MaxUses != nil {
		model.MaxUses = pgtype.Int4{Int32: *payload.MaxUses, Valid: true}
	}
	return model, nil
}

// Create inserts a new promo rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo store not configured", nil)
		return
	}
	var payload promoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	model, err := h.buildModel(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.S.CreatePromo(r.Context(), model)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "promo code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create promo", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": promoView(created)})
}

// Update mutates an existing promo identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo store not configured", nil)
		return
	}
	code := CanonicalCode(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var payload promoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = code
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	model, err := h.buildModel(payload)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	updated, err := h.S.UpdatePromo(r.Context(), model)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promo not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update promo", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": promoView(updated)})
}

// List returns paginated promo rules for the back-office.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	promos, err := h.S.ListPromos(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list promos", nil)
		return
	}
	views := make([]map[string]any, 0, len(promos))
	for _, p := range promos {
		views = append(views, promoView(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views, "meta": common.Pagination{Page: page, PerPage: perPage}})
}

// Preview simulates a promo evaluation without touching any cart state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo service not configured", nil)
		return
	}
	var payload previewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	evalCtx := ContextProduct
	if strings.EqualFold(payload.Context, string(ContextSubscription)) {
		evalCtx = ContextSubscription
	}
	app, err := h.Svc.Evaluate(r.Context(), payload.Code, payload.TotalCents, Options{
		Context:        evalCtx,
		CategoryTotals: payload.CategoryTotals,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to evaluate promo", nil)
		return
	}
	if app == nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID", "promo is not applicable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"code":          app.Rule.Code,
		"discountCents": app.DiscountCents,
	}})
}

func (h *Handler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func promoView(p store.PromoCode) map[string]any {
	return map[string]any{
		"id":                store.UUIDString(p.ID),
		"code":              p.Code,
		"isActive":          p.IsActive,
		"targetType":        string(ParseTargetType(p.TargetType)),
		"productCategoryId": nullableString(store.UUIDString(p.ProductCategoryID)),
		"discountType":      p.DiscountType,
		"discountValue":     p.DiscountValue,
		"startsAt":          store.TimePtr(p.StartsAt),
		"endsAt":            store.TimePtr(p.EndsAt),
		"maxUses":           nullableInt32(p.MaxUses),
		"currentUses":       p.CurrentUses,
		"createdAt":         p.CreatedAt,
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt32(v pgtype.Int4) any {
	if !v.Valid {
		return nil
	}
	return v.Int32
}
