package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/cart"
	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

// Handler exposes customer-facing order endpoints.
type Handler struct {
	S    *store.Store
	Svc  *Service
	Cart *cart.Service
	Log  zerolog.Logger
}

type checkoutRequest struct {
	Items []cart.LineItem `json:"items"`
	Code  string          `json:"code"`
}

// Checkout prices the submitted cart and creates a pending order for it.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Cart == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	uID, err := store.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var payload checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart is empty", nil)
		return
	}
	comp, app, err := h.Cart.ApplyPromo(r.Context(), payload.Items, payload.Code)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidProducts) {
			common.JSONError(w, http.StatusBadRequest, "PRODUCTS", "cart references unavailable products", nil)
			return
		}
		h.Log.Error().Err(err).Msg("checkout pricing failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price cart", nil)
		return
	}
	created, err := h.Svc.Checkout(r.Context(), uID, comp, app)
	if err != nil {
		h.Log.Error().Err(err).Msg("checkout failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create order", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": orderView(created)})
}

// List returns the authenticated customer's orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	uID, err := store.ToUUID(userID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	orders, err := h.S.ListOrdersByUser(r.Context(), uID, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	response := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		response = append(response, orderView(o))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(response)))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       response,
		"pagination": common.Pagination{Page: page, PerPage: perPage},
	})
}

// Get returns one of the customer's orders with its items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.S == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	oID, err := store.ToUUID(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.S.GetOrderByID(r.Context(), oID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if store.UUIDString(o.UserID) != userID {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
		return
	}
	items, err := h.S.ListOrderItems(r.Context(), o.ID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order items", nil)
		return
	}
	view := orderView(o)
	lines := make([]map[string]any, 0, len(items))
	for _, it := range items {
		lines = append(lines, map[string]any{
			"productId":      store.UUIDString(it.ProductID),
			"quantity":       it.Quantity,
			"unitPriceCents": it.UnitPriceCents,
		})
	}
	view["items"] = lines
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func orderView(o store.Order) map[string]any {
	view := map[string]any{
		"id":            store.UUIDString(o.ID),
		"status":        o.Status,
		"totalPaid":     o.TotalPaid,
		"discountCents": o.DiscountCents,
		"currency":      o.Currency,
		"createdAt":     o.CreatedAt,
	}
	if o.PromoCode.Valid {
		view["promoCode"] = o.PromoCode.String
	}
	if o.PaidAt.Valid {
		view["paidAt"] = o.PaidAt.Time
	}
	return view
}
