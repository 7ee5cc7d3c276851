package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/pricing"
)

// Cart failure codes surfaced to the storefront.
const (
	CodeEmpty    = "EMPTY"
	CodeProducts = "PRODUCTS"
	CodeBinary   = "BINARY"
	CodeInvalid  = "INVALID"
	CodeServer   = "SERVER"
)

// ErrBinaryUnavailable is reported when a purchased download is no longer
// distributable. The cart engine never raises it; the delivery subsystem does.
var ErrBinaryUnavailable = errors.New("INVALID_BINARY")

// Handler wires the cart engine to HTTP.
type Handler struct {
	Svc *Service
	Log zerolog.Logger
}

type applyPromoRequest struct {
	Items []LineItem `json:"items"`
	Code  string     `json:"code"`
}

type cartResponse struct {
	OK             bool   `json:"ok"`
	Code           string `json:"code,omitempty"`
	DiscountAmount int64  `json:"discountAmount"`
	NewTotal       int64  `json:"newTotal"`
	Message        string `json:"message"`
}

type cartErrorResponse struct {
	OK        bool   `json:"ok"`
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// ApplyPromo prices the submitted cart and applies a promo code to it.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		h.writeFailure(w, http.StatusInternalServerError, CodeServer)
		return
	}
	var payload applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Items) == 0 {
		h.writeFailure(w, http.StatusBadRequest, CodeEmpty)
		return
	}
	comp, app, err := h.Svc.ApplyPromo(r.Context(), payload.Items, payload.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if app == nil {
		h.writeFailure(w, http.StatusBadRequest, CodeInvalid)
		return
	}
	priced := make([]pricing.Item, 0, len(comp.Items))
	for _, it := range comp.Items {
		p := comp.Products[it.ProductID]
		priced = append(priced, pricing.Item{Qty: it.Quantity, UnitPrice: p.PriceCents})
	}
	summary := pricing.Compute(priced, app.DiscountCents)
	common.JSON(w, http.StatusOK, cartResponse{
		OK:             true,
		Code:           app.Rule.Code,
		DiscountAmount: summary.Discount,
		NewTotal:       summary.Total,
		Message:        "Code promo appliqué.",
	})
}

// RemovePromo reprices the cart without any promo code.
func (h *Handler) RemovePromo(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		h.writeFailure(w, http.StatusInternalServerError, CodeServer)
		return
	}
	var payload applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Items) == 0 {
		h.writeFailure(w, http.StatusBadRequest, CodeEmpty)
		return
	}
	comp, err := h.Svc.ComputeTotals(r.Context(), payload.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, cartResponse{
		OK:             true,
		DiscountAmount: 0,
		NewTotal:       comp.TotalCents,
		Message:        "Code promo retiré.",
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidProducts):
		h.writeFailure(w, http.StatusBadRequest, CodeProducts)
	case errors.Is(err, ErrBinaryUnavailable):
		h.writeFailure(w, http.StatusBadRequest, CodeBinary)
	default:
		h.Log.Error().Err(err).Str("path", r.URL.Path).Msg("cart computation failed")
		h.writeFailure(w, http.StatusInternalServerError, CodeServer)
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, status int, code string) {
	common.JSON(w, status, cartErrorResponse{
		OK:        false,
		ErrorCode: code,
		Message:   failureMessage(code),
	})
}

func failureMessage(code string) string {
	switch code {
	case CodeEmpty:
		return "Votre panier est vide."
	case CodeProducts:
		return "Certains produits de votre panier ne sont plus disponibles."
	case CodeBinary:
		return "Ce produit n'est plus disponible au téléchargement."
	case CodeInvalid:
		return "Ce code promo n'est pas valide."
	default:
		return "Une erreur est survenue. Veuillez réessayer."
	}
}
