package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/comptamatch/backend-compta/internal/promo"
	"github.com/comptamatch/backend-compta/internal/store"
)

// NoCategoryKey buckets line totals for products without a category. The URN
// form cannot collide with a category id, which is always a UUID.
const NoCategoryKey = "urn:comptamatch:category:none"

// ErrInvalidProducts indicates the cart references a product that is missing,
// inactive, or listed twice.
var ErrInvalidProducts = errors.New("INVALID_PRODUCTS")

// LineItem is a single client-submitted cart entry.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Computation is the derived pricing view of a cart.
type Computation struct {
	TotalCents       int64
	TotalsByCategory map[string]int64
	Products         map[string]store.Product
	Items            []LineItem
}

// ProductQuerier captures the catalog access the cart engine needs.
type ProductQuerier interface {
	ListActiveProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]store.Product, error)
}

// Service computes cart totals and coordinates promo evaluation.
type Service struct {
	Q     ProductQuerier
	Promo *promo.Service
}

// NormalizeItems coerces raw line items into their canonical form. Quantities
// that are zero or negative fall back to 1.
func NormalizeItems(raw []LineItem) []LineItem {
	items := make([]LineItem, 0, len(raw))
	for _, it := range raw {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, LineItem{
			ProductID: strings.TrimSpace(it.ProductID),
			Quantity:  qty,
		})
	}
	return items
}

// CategoryKey resolves the bucket key for a product's category column.
func CategoryKey(categoryID pgtype.UUID) string {
	if !categoryID.Valid {
		return NoCategoryKey
	}
	return store.UUIDString(categoryID)
}

// ComputeTotals prices the cart against the live catalog. Every line item must
// resolve to a distinct active product or the whole computation fails with
// ErrInvalidProducts.
func (s *Service) ComputeTotals(ctx context.Context, raw []LineItem) (Computation, error) {
	if s == nil || s.Q == nil {
		return Computation{}, errors.New("cart service not configured")
	}
	items := NormalizeItems(raw)
	if len(items) == 0 {
		return Computation{
			TotalsByCategory: map[string]int64{},
			Products:         map[string]store.Product{},
			Items:            items,
		}, nil
	}

	ids := make([]pgtype.UUID, 0, len(items))
	for i, it := range items {
		id, err := store.ToUUID(it.ProductID)
		if err != nil {
			return Computation{}, ErrInvalidProducts
		}
		ids = append(ids, id)
		items[i].ProductID = store.UUIDString(id)
	}
	products, err := s.Q.ListActiveProductsByIDs(ctx, ids)
	if err != nil {
		return Computation{}, err
	}
	// A duplicate product id collapses in the fetched set and fails the count
	// check, exactly like a missing or inactive product does.
	if len(products) != len(items) {
		return Computation{}, ErrInvalidProducts
	}

	byID := make(map[string]store.Product, len(products))
	for _, p := range products {
		byID[store.UUIDString(p.ID)] = p
	}

	totals := make(map[string]int64)
	var total int64
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return Computation{}, ErrInvalidProducts
		}
		line := p.PriceCents * int64(it.Quantity)
		totals[CategoryKey(p.CategoryID)] += line
		total += line
	}
	return Computation{
		TotalCents:       total,
		TotalsByCategory: totals,
		Products:         byID,
		Items:            items,
	}, nil
}

// ApplyPromo prices the cart and evaluates the promo code against it. A nil
// application means the code does not apply to this cart.
func (s *Service) ApplyPromo(ctx context.Context, raw []LineItem, code string) (Computation, *promo.Application, error) {
	comp, err := s.ComputeTotals(ctx, raw)
	if err != nil {
		return Computation{}, nil, err
	}
	if s.Promo == nil {
		return comp, nil, errors.New("promo service not configured")
	}
	app, err := s.Promo.Evaluate(ctx, code, comp.TotalCents, promo.Options{
		Context:        promo.ContextProduct,
		CategoryTotals: comp.TotalsByCategory,
	})
	if err != nil {
		return Computation{}, nil, err
	}
	return comp, app, nil
}
