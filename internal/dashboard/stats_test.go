package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	"github.com/comptamatch/backend-compta/internal/store"
)

type stubQueries struct {
	orders       []store.Order
	products     []store.Product
	itemCounts   []store.ProductSalesCount
	events       []store.EventAggregate
	totalUsers   int64
	newUsers     int64
	paying       int64
	ordersErr    error
	listCalls    int
	orderFilters []store.OrderFilter
}

func (s *stubQueries) ListPaidOrders(ctx context.Context, f store.OrderFilter) ([]store.Order, error) {
	s.listCalls++
	s.orderFilters = append(s.orderFilters, f)
	if s.ordersErr != nil {
		return nil, s.ordersErr
	}
	return s.orders, nil
}

func (s *stubQueries) CountUsers(ctx context.Context) (int64, error) { return s.totalUsers, nil }

func (s *stubQueries) CountUsersCreatedBetween(ctx context.Context, from, to pgtype.Timestamptz) (int64, error) {
	return s.newUsers, nil
}

func (s *stubQueries) CountDistinctPaidCustomers(ctx context.Context, f store.OrderFilter) (int64, error) {
	return s.paying, nil
}

func (s *stubQueries) CountPaidOrderItemsByProduct(ctx context.Context, f store.OrderFilter) ([]store.ProductSalesCount, error) {
	return s.itemCounts, nil
}

func (s *stubQueries) ListProducts(ctx context.Context, activeOnly bool) ([]store.Product, error) {
	return s.products, nil
}

func (s *stubQueries) AggregateEventsByProduct(ctx context.Context, from, to pgtype.Timestamptz) ([]store.EventAggregate, error) {
	return s.events, nil
}

func paidOrder(total int64, fee int64, at time.Time) store.Order {
	o := store.Order{
		ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Status:    store.OrderStatusPaid,
		TotalPaid: total,
		Currency:  "EUR",
		PaidAt:    pgtype.Timestamptz{Time: at, Valid: true},
		CreatedAt: at.Add(-time.Hour),
	}
	if fee > 0 {
		o.StripeFeeAmount = pgtype.Int8{Int64: fee, Valid: true}
	}
	return o
}

func statsNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestStatsSalesTotalsAndTimeline(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	q := &stubQueries{
		orders: []store.Order{
			paidOrder(10_000, 300, day.Add(9*time.Hour)),
			paidOrder(5_000, 150, day.Add(10*time.Hour)),
			paidOrder(2_000, 0, day.AddDate(0, 0, 2)),
		},
	}
	svc := &Service{Q: q, Now: statsNow}
	stats, err := svc.Stats(context.Background(), RangeMonth, Selection{Year: 2024, Month: 6}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Sales.TotalRevenueCents != 17_000 {
		t.Fatalf("expected revenue 17000, got %d", stats.Sales.TotalRevenueCents)
	}
	if stats.Sales.TotalStripeFeesCents != 450 {
		t.Fatalf("expected fees 450, got %d", stats.Sales.TotalStripeFeesCents)
	}
	if stats.Sales.NetResultCents != 16_550 {
		t.Fatalf("expected net 16550, got %d", stats.Sales.NetResultCents)
	}
	if stats.Sales.OrdersCount != 3 {
		t.Fatalf("expected 3 orders, got %d", stats.Sales.OrdersCount)
	}
	if len(stats.Sales.Timeline) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(stats.Sales.Timeline))
	}
	var sum int64
	for _, point := range stats.Sales.Timeline {
		sum += point.RevenueCents
	}
	if sum != stats.Sales.TotalRevenueCents {
		t.Fatalf("timeline sum %d does not match revenue %d", sum, stats.Sales.TotalRevenueCents)
	}
	if stats.Sales.Timeline[0].Key >= stats.Sales.Timeline[1].Key {
		t.Fatal("timeline must be sorted ascending")
	}
}

func TestStatsHourBucketsForDayRange(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	q := &stubQueries{
		orders: []store.Order{
			paidOrder(1_000, 0, day.Add(9*time.Hour+12*time.Minute)),
			paidOrder(2_000, 0, day.Add(9*time.Hour+45*time.Minute)),
			paidOrder(3_000, 0, day.Add(15*time.Hour)),
		},
	}
	svc := &Service{Q: q, Now: statsNow}
	stats, err := svc.Stats(context.Background(), RangeDay, Selection{Day: day}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.Sales.Timeline) != 2 {
		t.Fatalf("expected 2 hour buckets, got %d", len(stats.Sales.Timeline))
	}
	if stats.Sales.Timeline[0].Label != "9h" {
		t.Fatalf("expected label 9h, got %q", stats.Sales.Timeline[0].Label)
	}
	if stats.Sales.Timeline[0].RevenueCents != 3_000 {
		t.Fatalf("expected 3000 in the 9h bucket, got %d", stats.Sales.Timeline[0].RevenueCents)
	}
}

func TestStatsEffectiveDateFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	o := store.Order{Status: store.OrderStatusPaid, TotalPaid: 500, CreatedAt: created}
	if got := EffectiveDate(o); !got.Equal(created) {
		t.Fatalf("expected createdAt fallback, got %v", got)
	}
	paid := created.Add(2 * time.Hour)
	o.PaidAt = pgtype.Timestamptz{Time: paid, Valid: true}
	if got := EffectiveDate(o); !got.Equal(paid) {
		t.Fatalf("expected paidAt, got %v", got)
	}
}

func TestStatsZeroFillsCatalog(t *testing.T) {
	hot := store.Product{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Title: "Compta Pro"}
	cold := store.Product{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Title: "Compta Lite"}
	q := &stubQueries{
		products:   []store.Product{cold, hot},
		itemCounts: []store.ProductSalesCount{{ProductID: hot.ID, Count: 7}},
		events:     []store.EventAggregate{{ProductID: hot.ID, Type: store.EventTypeView, Count: 40}},
	}
	svc := &Service{Q: q, Now: statsNow}
	stats, err := svc.Stats(context.Background(), RangeMonth, Selection{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats.ProductSales) != 2 || len(stats.Interactions) != 2 {
		t.Fatalf("expected the full catalog in both lists, got %d and %d", len(stats.ProductSales), len(stats.Interactions))
	}
	if stats.ProductSales[0].Title != "Compta Pro" || stats.ProductSales[0].SalesCountInRange != 7 {
		t.Fatalf("expected best seller first, got %+v", stats.ProductSales[0])
	}
	if stats.ProductSales[1].SalesCountInRange != 0 {
		t.Fatalf("expected zero-filled sales, got %+v", stats.ProductSales[1])
	}
	if stats.Interactions[0].ViewsInRange != 40 || stats.Interactions[1].ViewsInRange != 0 {
		t.Fatalf("unexpected interactions: %+v", stats.Interactions)
	}
}

func TestStatsExcludesTestAccount(t *testing.T) {
	testUser := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	q := &stubQueries{}
	svc := &Service{Q: q, TestAccountID: testUser, Now: statsNow}
	if _, err := svc.Stats(context.Background(), RangeMonth, Selection{}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.orderFilters) == 0 || !q.orderFilters[0].ExcludeUser.Valid {
		t.Fatal("expected test account exclusion in the order filter")
	}
	q2 := &stubQueries{}
	svc2 := &Service{Q: q2, TestAccountID: testUser, Now: statsNow}
	if _, err := svc2.Stats(context.Background(), RangeMonth, Selection{}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q2.orderFilters[0].ExcludeUser.Valid {
		t.Fatal("includeTestAccount must disable the exclusion")
	}
}

func TestStatsAllOrNothing(t *testing.T) {
	q := &stubQueries{ordersErr: errors.New("db down")}
	svc := &Service{Q: q, Now: statsNow}
	if _, err := svc.Stats(context.Background(), RangeMonth, Selection{}, true); err == nil {
		t.Fatal("expected aggregation failure to surface")
	}
}

func TestStatsCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := &stubQueries{orders: []store.Order{paidOrder(1_000, 0, statsNow())}}
	svc := &Service{Q: q, R: rdb, TTL: time.Minute, Now: statsNow}

	if _, err := svc.Stats(context.Background(), RangeMonth, Selection{}, true); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.Stats(context.Background(), RangeMonth, Selection{}, true); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if q.listCalls != 1 {
		t.Fatalf("expected 1 DB pass, got %d", q.listCalls)
	}
}
