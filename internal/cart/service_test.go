package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/promo"
	"github.com/comptamatch/backend-compta/internal/store"
)

type stubCatalog struct {
	products []store.Product
	err      error
}

func (s *stubCatalog) ListActiveProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]store.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	seen := map[[16]byte]bool{}
	var out []store.Product
	for _, id := range ids {
		if seen[id.Bytes] {
			continue
		}
		seen[id.Bytes] = true
		for _, p := range s.products {
			if p.ID.Bytes == id.Bytes && p.IsActive {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type stubPromoQuerier struct {
	promo store.PromoCode
}

func (s *stubPromoQuerier) GetPromoByCode(ctx context.Context, code string) (store.PromoCode, error) {
	if s.promo.Code != code {
		return store.PromoCode{}, pgx.ErrNoRows
	}
	return s.promo, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func newProduct(price int64, categoryID *uuid.UUID) store.Product {
	p := store.Product{
		ID:         pgUUID(uuid.New()),
		PriceCents: price,
		IsActive:   true,
	}
	if categoryID != nil {
		p.CategoryID = pgUUID(*categoryID)
	}
	return p
}

func TestComputeTotalsAdditivity(t *testing.T) {
	catA := uuid.New()
	catB := uuid.New()
	p1 := newProduct(1_000, &catA)
	p2 := newProduct(2_500, &catA)
	p3 := newProduct(400, &catB)
	svc := &Service{Q: &stubCatalog{products: []store.Product{p1, p2, p3}}}

	comp, err := svc.ComputeTotals(context.Background(), []LineItem{
		{ProductID: store.UUIDString(p1.ID), Quantity: 2},
		{ProductID: store.UUIDString(p2.ID), Quantity: 1},
		{ProductID: store.UUIDString(p3.ID), Quantity: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.TotalCents != 5_700 {
		t.Fatalf("expected total 5700, got %d", comp.TotalCents)
	}
	if comp.TotalsByCategory[catA.String()] != 4_500 {
		t.Fatalf("expected category A total 4500, got %d", comp.TotalsByCategory[catA.String()])
	}
	if comp.TotalsByCategory[catB.String()] != 1_200 {
		t.Fatalf("expected category B total 1200, got %d", comp.TotalsByCategory[catB.String()])
	}
	var sum int64
	for _, v := range comp.TotalsByCategory {
		sum += v
	}
	if sum != comp.TotalCents {
		t.Fatalf("category totals %d do not sum to total %d", sum, comp.TotalCents)
	}
}

func TestComputeTotalsNoCategoryBucket(t *testing.T) {
	p := newProduct(1_500, nil)
	svc := &Service{Q: &stubCatalog{products: []store.Product{p}}}
	comp, err := svc.ComputeTotals(context.Background(), []LineItem{{ProductID: store.UUIDString(p.ID), Quantity: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp.TotalsByCategory[NoCategoryKey] != 3_000 {
		t.Fatalf("expected 3000 in the no-category bucket, got %d", comp.TotalsByCategory[NoCategoryKey])
	}
}

func TestComputeTotalsUnknownProduct(t *testing.T) {
	p := newProduct(1_000, nil)
	svc := &Service{Q: &stubCatalog{products: []store.Product{p}}}
	_, err := svc.ComputeTotals(context.Background(), []LineItem{
		{ProductID: store.UUIDString(p.ID), Quantity: 1},
		{ProductID: uuid.NewString(), Quantity: 1},
	})
	if !errors.Is(err, ErrInvalidProducts) {
		t.Fatalf("expected ErrInvalidProducts, got %v", err)
	}
}

func TestComputeTotalsInactiveProduct(t *testing.T) {
	p := newProduct(1_000, nil)
	p.IsActive = false
	svc := &Service{Q: &stubCatalog{products: []store.Product{p}}}
	_, err := svc.ComputeTotals(context.Background(), []LineItem{{ProductID: store.UUIDString(p.ID), Quantity: 1}})
	if !errors.Is(err, ErrInvalidProducts) {
		t.Fatalf("expected ErrInvalidProducts, got %v", err)
	}
}

func TestComputeTotalsDuplicateLineItems(t *testing.T) {
	p := newProduct(1_000, nil)
	svc := &Service{Q: &stubCatalog{products: []store.Product{p}}}
	id := store.UUIDString(p.ID)
	_, err := svc.ComputeTotals(context.Background(), []LineItem{
		{ProductID: id, Quantity: 1},
		{ProductID: id, Quantity: 2},
	})
	if !errors.Is(err, ErrInvalidProducts) {
		t.Fatalf("expected ErrInvalidProducts for duplicate lines, got %v", err)
	}
}

func TestComputeTotalsMalformedProductID(t *testing.T) {
	svc := &Service{Q: &stubCatalog{}}
	_, err := svc.ComputeTotals(context.Background(), []LineItem{{ProductID: "not-a-uuid", Quantity: 1}})
	if !errors.Is(err, ErrInvalidProducts) {
		t.Fatalf("expected ErrInvalidProducts, got %v", err)
	}
}

func TestNormalizeItemsDefaultsQuantity(t *testing.T) {
	items := NormalizeItems([]LineItem{
		{ProductID: "a", Quantity: 0},
		{ProductID: "b", Quantity: -3},
		{ProductID: "c", Quantity: 4},
	})
	if items[0].Quantity != 1 || items[1].Quantity != 1 || items[2].Quantity != 4 {
		t.Fatalf("unexpected normalized quantities: %+v", items)
	}
}

func TestApplyPromoEndToEnd(t *testing.T) {
	cat := uuid.New()
	p := newProduct(1_000, &cat)
	promoRow := store.PromoCode{
		ID:            pgUUID(uuid.New()),
		Code:          "PROMO10",
		IsActive:      true,
		TargetType:    "ALL",
		DiscountType:  "PERCENT",
		DiscountValue: 10,
	}
	svc := &Service{
		Q: &stubCatalog{products: []store.Product{p}},
		Promo: &promo.Service{
			Q:   &stubPromoQuerier{promo: promoRow},
			Now: func() time.Time { return time.Now() },
		},
	}
	comp, app, err := svc.ApplyPromo(context.Background(), []LineItem{{ProductID: store.UUIDString(p.ID), Quantity: 2}}, "promo10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app == nil {
		t.Fatal("expected promo application")
	}
	if app.DiscountCents != 200 {
		t.Fatalf("expected 200 discount, got %d", app.DiscountCents)
	}
	if comp.TotalCents-app.DiscountCents != 1_800 {
		t.Fatalf("expected new total 1800, got %d", comp.TotalCents-app.DiscountCents)
	}
}

func TestApplyPromoCategoryScopedAgainstCartTotals(t *testing.T) {
	catA := uuid.New()
	catB := uuid.New()
	p1 := newProduct(4_000, &catA)
	p2 := newProduct(6_000, &catB)
	promoRow := store.PromoCode{
		ID:                pgUUID(uuid.New()),
		Code:              "CATPROMO",
		IsActive:          true,
		TargetType:        "CATEGORY",
		ProductCategoryID: pgUUID(catA),
		DiscountType:      "PERCENT",
		DiscountValue:     50,
	}
	svc := &Service{
		Q:     &stubCatalog{products: []store.Product{p1, p2}},
		Promo: &promo.Service{Q: &stubPromoQuerier{promo: promoRow}},
	}
	_, app, err := svc.ApplyPromo(context.Background(), []LineItem{
		{ProductID: store.UUIDString(p1.ID), Quantity: 1},
		{ProductID: store.UUIDString(p2.ID), Quantity: 1},
	}, "CATPROMO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app == nil {
		t.Fatal("expected promo application")
	}
	if app.DiscountCents != 2_000 {
		t.Fatalf("expected half of the category slice, got %d", app.DiscountCents)
	}
}
