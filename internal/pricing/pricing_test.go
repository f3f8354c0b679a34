package pricing

import (
	"testing"

	"backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestProductPriceCycleSpecific(t *testing.T) {
	product := &models.Product{
		Price:        100,
		WeeklyPrice:  floatPtr(10),
		MonthlyPrice: floatPtr(30),
		YearlyPrice:  floatPtr(300),
	}

	tests := []struct {
		cycle models.BillingCycle
		want  float64
	}{
		{models.CycleWeekly, 10},
		{models.CycleMonthly, 30},
		{models.CycleYearly, 300},
		{models.CycleOneTime, 100},
		{models.BillingCycle("quarterly"), 100},
		{models.BillingCycle(""), 100},
	}

	for _, tt := range tests {
		if got := ProductPrice(product, tt.cycle); got != tt.want {
			t.Fatalf("ProductPrice(%q) = %v, want %v", tt.cycle, got, tt.want)
		}
	}
}

func TestProductPriceFallsBackToBase(t *testing.T) {
	product := &models.Product{Price: 49.99}

	for _, cycle := range []models.BillingCycle{models.CycleWeekly, models.CycleMonthly, models.CycleYearly} {
		if got := ProductPrice(product, cycle); got != 49.99 {
			t.Fatalf("expected base price fallback for %q, got %v", cycle, got)
		}
	}
}

func TestCentsRoundsPerComponent(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{50, 5000},
		{0, 0},
		{19.99, 1999},
		{0.1, 10},
		{10.005, 1001},
		{29.999, 3000},
	}

	for _, tt := range tests {
		if got := Cents(tt.amount); got != tt.want {
			t.Fatalf("Cents(%v) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestComputeBreakdownDigitalProduct(t *testing.T) {
	// $50 digital product, no shipping, 15% platform fee.
	b := ComputeBreakdown(50, 0, 15)

	if b.ProductCents != 5000 {
		t.Fatalf("product cents = %d, want 5000", b.ProductCents)
	}
	if b.PlatformFeeCents != 750 {
		t.Fatalf("fee cents = %d, want 750", b.PlatformFeeCents)
	}
	if b.TotalCents != 5750 {
		t.Fatalf("total cents = %d, want 5750", b.TotalCents)
	}
}

func TestComputeBreakdownFeeIsTopUp(t *testing.T) {
	// $20 physical product with a $10 rate: displayed total stays 30.00,
	// the fee only tops up the charge.
	b := ComputeBreakdown(20, 10, 15)

	if got := FromCents(b.ProductCents + b.ShippingCents); got != 30.00 {
		t.Fatalf("displayed total = %v, want 30.00", got)
	}
	if got := b.ShopRevenue(); got != 30.00 {
		t.Fatalf("shop revenue = %v, want 30.00", got)
	}
	if b.PlatformFeeCents != 300 {
		t.Fatalf("fee cents = %d, want 300", b.PlatformFeeCents)
	}
	if b.TotalCents != 3300 {
		t.Fatalf("charge total = %d, want 3300", b.TotalCents)
	}
}

func TestComputeBreakdownRoundsInCentsSpace(t *testing.T) {
	// 33.335 and 0.105 each round independently in cents space.
	b := ComputeBreakdown(33.335, 0.105, 10)

	if b.ProductCents != 3334 {
		t.Fatalf("product cents = %d, want 3334", b.ProductCents)
	}
	if b.ShippingCents != 11 {
		t.Fatalf("shipping cents = %d, want 11", b.ShippingCents)
	}
	if b.PlatformFeeCents != 333 {
		t.Fatalf("fee cents = %d, want 333", b.PlatformFeeCents)
	}
	if b.TotalCents != 3334+11+333 {
		t.Fatalf("total cents = %d, want %d", b.TotalCents, 3334+11+333)
	}
}
