package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/store"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(context.Context) error   { t.commits++; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rollbacks++; return nil }

type stubSettleQuerier struct {
	orders      map[string]store.Order
	promo       store.PromoCode
	markCalls   int
	settleCalls int
}

func newStubSettleQuerier() *stubSettleQuerier {
	return &stubSettleQuerier{orders: map[string]store.Order{}}
}

func (s *stubSettleQuerier) CreateOrder(_ context.Context, o store.Order, _ []store.OrderItem) (store.Order, error) {
	o.ID = store.NewUUID()
	s.orders[store.UUIDString(o.ID)] = o
	return o, nil
}

func (s *stubSettleQuerier) GetOrderByID(_ context.Context, id pgtype.UUID) (store.Order, error) {
	o, ok := s.orders[store.UUIDString(id)]
	if !ok {
		return store.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (s *stubSettleQuerier) MarkOrderPaid(_ context.Context, _ pgx.Tx, id pgtype.UUID, fee pgtype.Int8, paidAt pgtype.Timestamptz) (store.Order, error) {
	s.markCalls++
	o, ok := s.orders[store.UUIDString(id)]
	if !ok {
		return store.Order{}, pgx.ErrNoRows
	}
	o.Status = store.OrderStatusPaid
	o.StripeFeeAmount = fee
	o.PaidAt = paidAt
	s.orders[store.UUIDString(id)] = o
	return o, nil
}

func (s *stubSettleQuerier) GetPromoByCode(_ context.Context, code string) (store.PromoCode, error) {
	if s.promo.Code != code {
		return store.PromoCode{}, pgx.ErrNoRows
	}
	return s.promo, nil
}

func (s *stubSettleQuerier) SettlePromoUsage(_ context.Context, _ pgx.Tx, _, _, _ pgtype.UUID, _ int64) error {
	s.settleCalls++
	return nil
}

type stubTxBeginner struct {
	tx *fakeTx
}

func (b *stubTxBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return b.tx, nil
}

type countingPublisher struct {
	events []string
}

func (p *countingPublisher) Publish(topic string, _ any) {
	p.events = append(p.events, topic)
}

func newSettleService(t *testing.T) (*Service, *stubSettleQuerier, *countingPublisher, store.Order) {
	t.Helper()
	q := newStubSettleQuerier()
	q.promo = store.PromoCode{ID: store.NewUUID(), Code: "BIENVENUE10"}
	created, err := q.CreateOrder(context.Background(), store.Order{
		UserID:        store.NewUUID(),
		Status:        store.OrderStatusPending,
		TotalPaid:     9000,
		DiscountCents: 1000,
		Currency:      "EUR",
		PromoCode:     pgtype.Text{String: "BIENVENUE10", Valid: true},
	}, nil)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	pub := &countingPublisher{}
	svc := &Service{
		Q:      q,
		DB:     &stubTxBeginner{tx: &fakeTx{}},
		Stream: pub,
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return svc, q, pub, created
}

func TestFinalizePaidSettlesPromoUsage(t *testing.T) {
	svc, q, pub, created := newSettleService(t)

	settled, err := svc.FinalizePaid(context.Background(), created.ID, pgtype.Int8{Int64: 250, Valid: true})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if settled.Status != store.OrderStatusPaid {
		t.Fatalf("expected PAID status, got %s", settled.Status)
	}
	if q.markCalls != 1 || q.settleCalls != 1 {
		t.Fatalf("expected one mark and one settle, got %d/%d", q.markCalls, q.settleCalls)
	}
	if len(pub.events) != 1 || pub.events[0] != TopicOrderPaid {
		t.Fatalf("expected one %s event, got %v", TopicOrderPaid, pub.events)
	}
}

func TestFinalizePaidReplayDoesNotDoubleSettle(t *testing.T) {
	svc, q, pub, created := newSettleService(t)

	first, err := svc.FinalizePaid(context.Background(), created.ID, pgtype.Int8{Int64: 250, Valid: true})
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	second, err := svc.FinalizePaid(context.Background(), created.ID, pgtype.Int8{Int64: 999, Valid: true})
	if err != nil {
		t.Fatalf("replayed finalize: %v", err)
	}
	if q.markCalls != 1 || q.settleCalls != 1 {
		t.Fatalf("replay must not re-mark or re-settle, got %d/%d", q.markCalls, q.settleCalls)
	}
	if len(pub.events) != 1 {
		t.Fatalf("replay must not re-publish, got %v", pub.events)
	}
	if second.StripeFeeAmount != first.StripeFeeAmount || !second.PaidAt.Time.Equal(first.PaidAt.Time) {
		t.Fatal("replay must return the stored settlement untouched")
	}
}

func TestFinalizePaidUnknownOrder(t *testing.T) {
	svc, _, _, _ := newSettleService(t)

	_, err := svc.FinalizePaid(context.Background(), store.NewUUID(), pgtype.Int8{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
