package promo

import (
	"strings"
	"time"
)

// TargetType scopes which part of a cart a promo applies to.
type TargetType string

// Known promo target types.
const (
	TargetAll      TargetType = "ALL"
	TargetProduct  TargetType = "PRODUCT"
	TargetCategory TargetType = "CATEGORY"
)

// ParseTargetType normalizes a stored target type, coercing unknown values to ALL.
func ParseTargetType(raw string) TargetType {
	switch TargetType(strings.ToUpper(strings.TrimSpace(raw))) {
	case TargetProduct:
		return TargetProduct
	case TargetCategory:
		return TargetCategory
	default:
		return TargetAll
	}
}

// Discount kinds. Any other stored value computes a zero discount.
const (
	DiscountPercent = "PERCENT"
	DiscountAmount  = "AMOUNT"
)

// Context identifies the checkout flow a promo is being evaluated for.
type Context string

// Evaluation contexts.
const (
	ContextProduct      Context = "PRODUCT"
	ContextSubscription Context = "SUBSCRIPTION"
)

// CanonicalCode returns the canonical form of a promo code: trimmed, uppercased.
func CanonicalCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Rule captures the runtime constraints of a promo code.
type Rule struct {
	Code              string
	IsActive          bool
	TargetType        TargetType
	ProductCategoryID string
	DiscountType      string
	DiscountValue     int64
	StartsAt          *time.Time
	EndsAt            *time.Time
	MaxUses           *int32
	CurrentUses       int32
}

// Input is the cart context a rule is evaluated against.
type Input struct {
	TotalCents     int64
	Context        Context
	CategoryTotals map[string]int64
}

// Application is the outcome of a successful evaluation.
type Application struct {
	Rule          Rule
	DiscountCents int64
}

// Evaluate runs the promo decision procedure against the cart input. A nil
// result means the promo does not apply; inapplicability is an expected
// outcome, never an error.
func Evaluate(r Rule, in Input, now time.Time) *Application {
	if in.TotalCents <= 0 {
		return nil
	}
	if !r.IsActive {
		return nil
	}

	target := ParseTargetType(string(r.TargetType))

	// Category- and product-scoped promos only apply to the product cart flow.
	if target != TargetAll && in.Context != ContextProduct {
		return nil
	}

	if r.StartsAt != nil && r.StartsAt.After(now) {
		return nil
	}
	if r.EndsAt != nil && r.EndsAt.Before(now) {
		return nil
	}
	if r.MaxUses != nil && *r.MaxUses > 0 && r.CurrentUses >= *r.MaxUses {
		return nil
	}

	eligible := eligibleBase(r, target, in)
	if eligible <= 0 {
		return nil
	}

	var discount int64
	switch r.DiscountType {
	case DiscountPercent:
		discount = eligible * r.DiscountValue / 100
	case DiscountAmount:
		discount = r.DiscountValue
	}
	if discount <= 0 {
		return nil
	}
	if discount > in.TotalCents {
		discount = in.TotalCents
	}
	return &Application{Rule: r, DiscountCents: discount}
}

// eligibleBase resolves the cart amount a rule may discount. PRODUCT-scoped
// rules without a category fall back to the full total, while CATEGORY-scoped
// rules without one resolve to zero and never apply.
func eligibleBase(r Rule, target TargetType, in Input) int64 {
	switch target {
	case TargetCategory:
		if r.ProductCategoryID == "" {
			return 0
		}
		return in.CategoryTotals[r.ProductCategoryID]
	case TargetProduct:
		if r.ProductCategoryID == "" {
			return in.TotalCents
		}
		return in.CategoryTotals[r.ProductCategoryID]
	default:
		return in.TotalCents
	}
}
