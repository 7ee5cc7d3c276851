package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/comptamatch/backend-compta/internal/obs"
	"github.com/comptamatch/backend-compta/internal/store"
)

// TypeEvent is the asynq task type for product interaction events.
const TypeEvent = "analytics:event"

// EventPayload is the queued representation of a product interaction.
type EventPayload struct {
	ProductID  string    `json:"productId"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEventTask builds the asynq task carrying an interaction event.
func NewEventTask(payload EventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return asynq.NewTask(TypeEvent, data), nil
}

// Recorder persists interaction events from the worker queue.
type Recorder struct {
	S   *store.Store
	Log zerolog.Logger
}

// HandleEventTask processes a queued interaction event. Malformed payloads are
// dropped rather than retried.
func (r *Recorder) HandleEventTask(ctx context.Context, task *asynq.Task) error {
	if r == nil || r.S == nil {
		return errors.New("analytics recorder not configured")
	}
	var payload EventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		r.Log.Warn().Err(err).Msg("dropping malformed analytics event")
		return nil
	}
	productID, err := store.ToUUID(payload.ProductID)
	if err != nil {
		r.Log.Warn().Str("product_id", payload.ProductID).Msg("dropping analytics event with bad product id")
		return nil
	}
	if payload.Type != store.EventTypeView && payload.Type != store.EventTypeAddToCart {
		r.Log.Warn().Str("type", payload.Type).Msg("dropping analytics event with unknown type")
		return nil
	}
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	if err := r.S.InsertAnalyticsEvent(ctx, productID, payload.Type, occurredAt); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	countEvent(payload.Type)
	return nil
}

func countEvent(eventType string) {
	if obs.AnalyticsEventsTotal == nil {
		return
	}
	obs.AnalyticsEventsTotal.WithLabelValues(eventType).Inc()
}
