package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// InsertAnalyticsEvent records a single product interaction event.
func (s *Store) InsertAnalyticsEvent(ctx context.Context, productID pgtype.UUID, eventType string, occurredAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO analytics_events (id, product_id, type, occurred_at)
		VALUES ($1, $2, $3, $4)`, NewUUID(), productID, eventType, occurredAt)
	return err
}

// EventAggregate is a per-product, per-type interaction count.
type EventAggregate struct {
	ProductID pgtype.UUID `db:"product_id"`
	Type      string      `db:"type"`
	Count     int64       `db:"count"`
}

// AggregateEventsByProduct groups analytics events by (product, type) inside the bounds.
func (s *Store) AggregateEventsByProduct(ctx context.Context, from, to pgtype.Timestamptz) ([]EventAggregate, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, type, COUNT(*) AS count
		FROM analytics_events
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		GROUP BY product_id, type`, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[EventAggregate])
}
