package pricing

import "testing"

func TestComputeSubtotal(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 1_000},
		{Qty: 1, UnitPrice: 5_000},
		{Qty: 0, UnitPrice: 9_999},
	}
	sum := Compute(items, 0)
	if sum.Subtotal != 7_000 {
		t.Fatalf("expected subtotal 7000, got %d", sum.Subtotal)
	}
	if sum.Total != 7_000 {
		t.Fatalf("expected total 7000, got %d", sum.Total)
	}
}

func TestComputeDiscountClamp(t *testing.T) {
	sum := Compute([]Item{{Qty: 1, UnitPrice: 1_000}}, 5_000)
	if sum.Discount != 1_000 {
		t.Fatalf("expected discount clamped to 1000, got %d", sum.Discount)
	}
	if sum.Total != 0 {
		t.Fatalf("expected zero total, got %d", sum.Total)
	}
}

func TestComputeNegativeDiscount(t *testing.T) {
	sum := Compute([]Item{{Qty: 1, UnitPrice: 1_000}}, -500)
	if sum.Discount != 0 || sum.Total != 1_000 {
		t.Fatalf("expected negative discount ignored, got %+v", sum)
	}
}
