package analytics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/common"
	"github.com/comptamatch/backend-compta/internal/store"
)

// Handler accepts interaction events from the storefront and queues them for
// asynchronous persistence.
type Handler struct {
	Client *asynq.Client
	Queue  string
	Log    zerolog.Logger
	Now    func() time.Time
}

type eventRequest struct {
	ProductID string `json:"productId"`
	Type      string `json:"type"`
}

// Ingest handles POST /events. The response is 202 on enqueue; the event row
// lands in the database once the worker drains the queue.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.Client == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "analytics queue not configured", nil)
		return
	}
	var payload eventRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Type != store.EventTypeView && payload.Type != store.EventTypeAddToCart {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown event type", nil)
		return
	}
	if _, err := store.ToUUID(payload.ProductID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	task, err := NewEventTask(EventPayload{
		ProductID:  payload.ProductID,
		Type:       payload.Type,
		OccurredAt: now,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to build event task", nil)
		return
	}
	opts := []asynq.Option{asynq.MaxRetry(5)}
	if h.Queue != "" {
		opts = append(opts, asynq.Queue(h.Queue))
	}
	if _, err := h.Client.EnqueueContext(r.Context(), task, opts...); err != nil {
		h.Log.Error().Err(err).Msg("failed to enqueue analytics event")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to record event", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
