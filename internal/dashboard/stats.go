package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/comptamatch/backend-compta/internal/obs"
	"github.com/comptamatch/backend-compta/internal/store"
)

// Querier defines the database access required for dashboard aggregation.
type Querier interface {
	ListPaidOrders(ctx context.Context, f store.OrderFilter) ([]store.Order, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersCreatedBetween(ctx context.Context, from, to pgtype.Timestamptz) (int64, error)
	CountDistinctPaidCustomers(ctx context.Context, f store.OrderFilter) (int64, error)
	CountPaidOrderItemsByProduct(ctx context.Context, f store.OrderFilter) ([]store.ProductSalesCount, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]store.Product, error)
	AggregateEventsByProduct(ctx context.Context, from, to pgtype.Timestamptz) ([]store.EventAggregate, error)
}

// TimelinePoint is one revenue bucket on the dashboard chart.
type TimelinePoint struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	RevenueCents int64  `json:"revenueCents"`
	OrdersCount  int64  `json:"ordersCount"`
}

// SalesStats aggregates paid orders over the selected range.
type SalesStats struct {
	TotalRevenueCents    int64           `json:"totalRevenueCents"`
	TotalStripeFeesCents int64           `json:"totalStripeFeesCents"`
	NetResultCents       int64           `json:"netResultCents"`
	OrdersCount          int64           `json:"ordersCount"`
	Timeline             []TimelinePoint `json:"timeline"`
}

// CustomerStats aggregates registered and paying customers.
type CustomerStats struct {
	TotalUsers             int64 `json:"totalUsers"`
	NewUsersInRange        int64 `json:"newUsersInRange"`
	PayingCustomersAllTime int64 `json:"payingCustomersAllTime"`
	PayingCustomersInRange int64 `json:"payingCustomersInRange"`
	SubscriptionCustomers  int64 `json:"subscriptionCustomers"`
}

// ProductSales pairs a catalog product with its order-item counts.
type ProductSales struct {
	ProductID         string `json:"productId"`
	Title             string `json:"title"`
	SalesCountInRange int64  `json:"salesCountInRange"`
	SalesCountAllTime int64  `json:"salesCountAllTime"`
}

// ProductInteractions pairs a catalog product with its analytics counters.
type ProductInteractions struct {
	ProductID        string `json:"productId"`
	Title            string `json:"title"`
	ViewsInRange     int64  `json:"viewsInRange"`
	AddToCartInRange int64  `json:"addToCartInRange"`
}

// Stats is the complete dashboard payload.
type Stats struct {
	Range        RangeKind             `json:"range"`
	From         *time.Time            `json:"from"`
	To           *time.Time            `json:"to"`
	Sales        SalesStats            `json:"sales"`
	Customers    CustomerStats         `json:"customers"`
	ProductSales []ProductSales        `json:"productSales"`
	Interactions []ProductInteractions `json:"productInteractions"`
}

// Service aggregates paid orders, customers, and analytics events into the
// admin dashboard payload. Results are cached in Redis per resolved range.
type Service struct {
	Q             Querier
	R             *redis.Client
	TTL           time.Duration
	TestAccountID pgtype.UUID
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Stats runs the four dashboard aggregations concurrently and merges them.
// A failure in any aggregation fails the whole request; no partial payloads.
func (s *Service) Stats(ctx context.Context, kind RangeKind, sel Selection, includeTestAccount bool) (Stats, error) {
	if s == nil || s.Q == nil {
		return Stats{}, errors.New("dashboard service not configured")
	}
	from, to := kind.Bounds(sel, s.now())
	bucket := BucketFor(kind)

	filter := store.OrderFilter{
		From: store.ToTimestamptz(from),
		To:   store.ToTimestamptz(to),
	}
	allTime := store.OrderFilter{}
	if !includeTestAccount && s.TestAccountID.Valid {
		filter.ExcludeUser = s.TestAccountID
		allTime.ExcludeUser = s.TestAccountID
	}

	key := cacheKey("dash", kind, tsKey(from), tsKey(to), includeTestAccount)
	if cached, ok := s.fromCache(ctx, key); ok {
		s.count(kind, "cache_hit")
		return cached, nil
	}

	var (
		sales        SalesStats
		customers    CustomerStats
		products     []store.Product
		salesInRange []store.ProductSalesCount
		salesAllTime []store.ProductSalesCount
		events       []store.EventAggregate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.Q.ListPaidOrders(gctx, filter)
		if err != nil {
			return fmt.Errorf("aggregate sales: %w", err)
		}
		sales = buildSales(orders, bucket)
		return nil
	})
	g.Go(func() error {
		var err error
		customers, err = s.buildCustomers(gctx, filter, allTime)
		if err != nil {
			return fmt.Errorf("aggregate customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if products, err = s.Q.ListProducts(gctx, false); err != nil {
			return fmt.Errorf("list catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if salesInRange, err = s.Q.CountPaidOrderItemsByProduct(gctx, filter); err != nil {
			return fmt.Errorf("aggregate product sales in range: %w", err)
		}
		if salesAllTime, err = s.Q.CountPaidOrderItemsByProduct(gctx, allTime); err != nil {
			return fmt.Errorf("aggregate product sales all time: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = s.Q.AggregateEventsByProduct(gctx, filter.From, filter.To)
		if err != nil {
			return fmt.Errorf("aggregate interactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.count(kind, "error")
		return Stats{}, err
	}

	result := Stats{
		Range:        kind,
		From:         from,
		To:           to,
		Sales:        sales,
		Customers:    customers,
		ProductSales: buildProductSales(products, salesInRange, salesAllTime),
		Interactions: buildInteractions(products, events),
	}
	s.toCache(ctx, key, result)
	s.count(kind, "ok")
	return result, nil
}

// EffectiveDate is the timestamp an order counts under: payment time when
// recorded, creation time otherwise.
func EffectiveDate(o store.Order) time.Time {
	if o.PaidAt.Valid {
		return o.PaidAt.Time
	}
	return o.CreatedAt
}

func buildSales(orders []store.Order, bucket Bucket) SalesStats {
	stats := SalesStats{Timeline: []TimelinePoint{}}
	byKey := map[string]*TimelinePoint{}
	for _, o := range orders {
		stats.TotalRevenueCents += o.TotalPaid
		if o.StripeFeeAmount.Valid {
			stats.TotalStripeFeesCents += o.StripeFeeAmount.Int64
		}
		stats.OrdersCount++

		at := bucket.Truncate(EffectiveDate(o))
		key := at.Format(time.RFC3339)
		point, ok := byKey[key]
		if !ok {
			point = &TimelinePoint{Key: key, Label: bucket.Label(at)}
			byKey[key] = point
		}
		point.RevenueCents += o.TotalPaid
		point.OrdersCount++
	}
	stats.NetResultCents = stats.TotalRevenueCents - stats.TotalStripeFeesCents
	for _, point := range byKey {
		stats.Timeline = append(stats.Timeline, *point)
	}
	sort.Slice(stats.Timeline, func(i, j int) bool {
		return stats.Timeline[i].Key < stats.Timeline[j].Key
	})
	return stats
}

func (s *Service) buildCustomers(ctx context.Context, filter, allTime store.OrderFilter) (CustomerStats, error) {
	stats := CustomerStats{}
	total, err := s.Q.CountUsers(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalUsers = total
	newUsers, err := s.Q.CountUsersCreatedBetween(ctx, filter.From, filter.To)
	if err != nil {
		return stats, err
	}
	stats.NewUsersInRange = newUsers
	paying, err := s.Q.CountDistinctPaidCustomers(ctx, allTime)
	if err != nil {
		return stats, err
	}
	stats.PayingCustomersAllTime = paying
	payingInRange, err := s.Q.CountDistinctPaidCustomers(ctx, filter)
	if err != nil {
		return stats, err
	}
	stats.PayingCustomersInRange = payingInRange
	// Subscriptions settle outside the order pipeline; they are reported
	// elsewhere and stay at zero here.
	stats.SubscriptionCustomers = 0
	return stats, nil
}

func buildProductSales(products []store.Product, inRange, allTime []store.ProductSalesCount) []ProductSales {
	rangeByID := map[string]int64{}
	for _, row := range inRange {
		rangeByID[store.UUIDString(row.ProductID)] = row.Count
	}
	allByID := map[string]int64{}
	for _, row := range allTime {
		allByID[store.UUIDString(row.ProductID)] = row.Count
	}
	out := make([]ProductSales, 0, len(products))
	for _, p := range products {
		id := store.UUIDString(p.ID)
		out = append(out, ProductSales{
			ProductID:         id,
			Title:             p.Title,
			SalesCountInRange: rangeByID[id],
			SalesCountAllTime: allByID[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SalesCountInRange > out[j].SalesCountInRange
	})
	return out
}

func buildInteractions(products []store.Product, events []store.EventAggregate) []ProductInteractions {
	views := map[string]int64{}
	carts := map[string]int64{}
	for _, ev := range events {
		id := store.UUIDString(ev.ProductID)
		switch ev.Type {
		case store.EventTypeView:
			views[id] += ev.Count
		case store.EventTypeAddToCart:
			carts[id] += ev.Count
		}
	}
	out := make([]ProductInteractions, 0, len(products))
	for _, p := range products {
		id := store.UUIDString(p.ID)
		out = append(out, ProductInteractions{
			ProductID:        id,
			Title:            p.Title,
			ViewsInRange:     views[id],
			AddToCartInRange: carts[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ViewsInRange > out[j].ViewsInRange
	})
	return out
}

func tsKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *Service) fromCache(ctx context.Context, key string) (Stats, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Stats{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Stats{}, false
	}
	var cached Stats
	if err := json.Unmarshal(data, &cached); err != nil {
		return Stats{}, false
	}
	return cached, true
}

func (s *Service) toCache(ctx context.Context, key string, value Stats) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}

func (s *Service) count(kind RangeKind, result string) {
	if obs.DashboardRequestsTotal == nil {
		return
	}
	obs.DashboardRequestsTotal.WithLabelValues(string(kind), result).Inc()
}
