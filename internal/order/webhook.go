package order

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// Webhook handles payment provider callbacks: signature verification, replay
// suppression, and order settlement.
type Webhook struct {
	S         *store.Store
	Svc       *Service
	Secret    string
	Replay    *redis.Client
	ReplayTTL time.Duration
	Log       zerolog.Logger
}

type webhookPayload struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	FeeAmount int64  `json:"feeAmount"`
}

// Handle processes POST /webhooks/payment.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.S == nil || h.Svc == nil || h.Secret == "" {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}
	if h.Replay != nil && h.ReplayTTL > 0 {
		key := fmt.Sprintf("wh:payment:%s", common.Sha256Hex(string(body)))
		ok, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", "replay store unavailable", nil)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusConflict, "REPLAY", "duplicate webhook", nil)
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "malformed payload", nil)
		return
	}
	orderID, err := store.ToUUID(payload.OrderID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ORDER_ID", "invalid order identifier", nil)
		return
	}
	if !strings.EqualFold(payload.Status, "paid") {
		// Other statuses carry no settlement work yet; acknowledge them so the
		// provider stops retrying.
		common.JSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true})
		return
	}

	existing, err := h.S.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if payload.Amount > 0 && payload.Amount != existing.TotalPaid {
		common.JSONError(w, http.StatusBadRequest, "AMOUNT_MISMATCH", "provider amount mismatch", nil)
		return
	}

	fee := pgtype.Int8{}
	if payload.FeeAmount > 0 {
		fee = pgtype.Int8{Int64: payload.FeeAmount, Valid: true}
	}
	settled, err := h.Svc.FinalizePaid(r.Context(), orderID, fee)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		h.Log.Error().Err(err).Str("order_id", payload.OrderID).Msg("order settlement failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settlement failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"orderId": store.UUIDString(settled.ID),
		"status":  settled.Status,
	})
}

func (h Webhook) verifySignature(body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
