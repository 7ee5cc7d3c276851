package promo

import (
	"testing"
	"time"
)

var evalNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func activeRule() Rule {
	return Rule{
		Code:          "WELCOME10",
		IsActive:      true,
		TargetType:    TargetAll,
		DiscountType:  DiscountPercent,
		DiscountValue: 10,
	}
}

func TestEvaluatePercentDiscount(t *testing.T) {
	app := Evaluate(activeRule(), Input{TotalCents: 10_000, Context: ContextProduct}, evalNow)
	if app == nil {
		t.Fatal("expected application")
	}
	if app.DiscountCents != 1_000 {
		t.Fatalf("expected 1000 discount, got %d", app.DiscountCents)
	}
}

func TestEvaluatePercentFloors(t *testing.T) {
	rule := activeRule()
	rule.DiscountValue = 33
	app := Evaluate(rule, Input{TotalCents: 101, Context: ContextProduct}, evalNow)
	if app == nil {
		t.Fatal("expected application")
	}
	if app.DiscountCents != 33 {
		t.Fatalf("expected floored 33, got %d", app.DiscountCents)
	}
}

func TestEvaluateAmountClampedToTotal(t *testing.T) {
	rule := activeRule()
	rule.DiscountType = DiscountAmount
	rule.DiscountValue = 5_000
	app := Evaluate(rule, Input{TotalCents: 3_000, Context: ContextProduct}, evalNow)
	if app == nil {
		t.Fatal("expected application")
	}
	if app.DiscountCents != 3_000 {
		t.Fatalf("expected clamp to 3000, got %d", app.DiscountCents)
	}
}

func TestEvaluateZeroTotal(t *testing.T) {
	if app := Evaluate(activeRule(), Input{TotalCents: 0, Context: ContextProduct}, evalNow); app != nil {
		t.Fatalf("expected nil for empty cart, got %+v", app)
	}
}

func TestEvaluateInactive(t *testing.T) {
	rule := activeRule()
	rule.IsActive = false
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app != nil {
		t.Fatal("expected nil for inactive rule")
	}
}

func TestEvaluateScopedRuleOutsideProductContext(t *testing.T) {
	rule := activeRule()
	rule.TargetType = TargetCategory
	rule.ProductCategoryID = "cat-1"
	in := Input{
		TotalCents:     10_000,
		Context:        ContextSubscription,
		CategoryTotals: map[string]int64{"cat-1": 10_000},
	}
	if app := Evaluate(rule, in, evalNow); app != nil {
		t.Fatal("expected nil outside product context")
	}
	in.Context = ContextProduct
	if app := Evaluate(rule, in, evalNow); app == nil {
		t.Fatal("expected application in product context")
	}
}

func TestEvaluateTimeWindow(t *testing.T) {
	future := evalNow.Add(time.Hour)
	past := evalNow.Add(-time.Hour)

	rule := activeRule()
	rule.StartsAt = &future
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app != nil {
		t.Fatal("expected nil before start")
	}

	rule = activeRule()
	rule.EndsAt = &past
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app != nil {
		t.Fatal("expected nil after end")
	}

	rule = activeRule()
	rule.StartsAt = &past
	rule.EndsAt = &future
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app == nil {
		t.Fatal("expected application inside window")
	}
}

func TestEvaluateUsageCap(t *testing.T) {
	limit := int32(5)
	rule := activeRule()
	rule.MaxUses = &limit
	rule.CurrentUses = 5
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app != nil {
		t.Fatal("expected nil at usage cap")
	}
	rule.CurrentUses = 4
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app == nil {
		t.Fatal("expected application under cap")
	}
}

func TestEvaluateZeroMaxUsesMeansUnlimited(t *testing.T) {
	limit := int32(0)
	rule := activeRule()
	rule.MaxUses = &limit
	rule.CurrentUses = 9_999
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app == nil {
		t.Fatal("expected application with zero cap")
	}
}

func TestEvaluateCategoryScope(t *testing.T) {
	rule := activeRule()
	rule.TargetType = TargetCategory
	rule.ProductCategoryID = "cat-1"
	in := Input{
		TotalCents:     20_000,
		Context:        ContextProduct,
		CategoryTotals: map[string]int64{"cat-1": 4_000, "cat-2": 16_000},
	}
	app := Evaluate(rule, in, evalNow)
	if app == nil {
		t.Fatal("expected application")
	}
	if app.DiscountCents != 400 {
		t.Fatalf("expected 400 discount on category slice, got %d", app.DiscountCents)
	}
}

func TestEvaluateCategoryScopeWithoutCategory(t *testing.T) {
	rule := activeRule()
	rule.TargetType = TargetCategory
	in := Input{TotalCents: 20_000, Context: ContextProduct}
	if app := Evaluate(rule, in, evalNow); app != nil {
		t.Fatal("expected nil for category rule without category")
	}
}

func TestEvaluateProductScopeWithoutCategoryUsesTotal(t *testing.T) {
	rule := activeRule()
	rule.TargetType = TargetProduct
	app := Evaluate(rule, Input{TotalCents: 20_000, Context: ContextProduct}, evalNow)
	if app == nil {
		t.Fatal("expected application")
	}
	if app.DiscountCents != 2_000 {
		t.Fatalf("expected discount on full total, got %d", app.DiscountCents)
	}
}

func TestEvaluateCategoryNotInCart(t *testing.T) {
	rule := activeRule()
	rule.TargetType = TargetCategory
	rule.ProductCategoryID = "cat-9"
	in := Input{
		TotalCents:     20_000,
		Context:        ContextProduct,
		CategoryTotals: map[string]int64{"cat-1": 20_000},
	}
	if app := Evaluate(rule, in, evalNow); app != nil {
		t.Fatal("expected nil when scoped category absent from cart")
	}
}

func TestEvaluateUnknownDiscountType(t *testing.T) {
	rule := activeRule()
	rule.DiscountType = "BOGOF"
	if app := Evaluate(rule, Input{TotalCents: 10_000, Context: ContextProduct}, evalNow); app != nil {
		t.Fatal("expected nil for unknown discount type")
	}
}

func TestParseTargetTypeCoercesUnknown(t *testing.T) {
	cases := map[string]TargetType{
		"ALL":        TargetAll,
		"product":    TargetProduct,
		" category ": TargetCategory,
		"":           TargetAll,
		"BUNDLE":     TargetAll,
	}
	for raw, want := range cases {
		if got := ParseTargetType(raw); got != want {
			t.Fatalf("ParseTargetType(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestCanonicalCode(t *testing.T) {
	if got := CanonicalCode("  welcome10 "); got != "WELCOME10" {
		t.Fatalf("expected WELCOME10, got %q", got)
	}
}
