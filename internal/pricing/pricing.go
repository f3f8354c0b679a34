package pricing

import (
	"github.com/shopspring/decimal"

	"backend/internal/models"
)

// ProductPrice returns the cycle-specific price when one is configured,
// otherwise the base price. One-time purchases and unrecognized cycles
// always use the base price.
func ProductPrice(product *models.Product, cycle models.BillingCycle) float64 {
	switch cycle {
	case models.CycleWeekly:
		if product.WeeklyPrice != nil {
			return *product.WeeklyPrice
		}
	case models.CycleMonthly:
		if product.MonthlyPrice != nil {
			return *product.MonthlyPrice
		}
	case models.CycleYearly:
		if product.YearlyPrice != nil {
			return *product.YearlyPrice
		}
	}
	return product.Price
}

// Cents converts a major-unit amount into minor units, rounding half away
// from zero. Each money component is converted independently; summing major
// units first and converting once loses cents in edge cases.
func Cents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts minor units back to a major-unit amount.
func FromCents(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return f
}

// Breakdown is the charge split in minor units. The platform fee is added on
// top of the customer-facing price; the connected merchant's payout stays
// productPrice + shippingCost.
type Breakdown struct {
	ProductCents     int64
	ShippingCents    int64
	PlatformFeeCents int64
	TotalCents       int64
}

// ComputeBreakdown rounds every component in cents space before summing.
func ComputeBreakdown(productPrice, shippingCost, feePercent float64) Breakdown {
	productCents := Cents(productPrice)
	shippingCents := Cents(shippingCost)

	fee := decimal.NewFromInt(productCents).
		Mul(decimal.NewFromFloat(feePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return Breakdown{
		ProductCents:     productCents,
		ShippingCents:    shippingCents,
		PlatformFeeCents: fee,
		TotalCents:       productCents + shippingCents + fee,
	}
}

// ShopRevenue is the connected merchant's net payout in major units.
func (b Breakdown) ShopRevenue() float64 {
	return FromCents(b.ProductCents + b.ShippingCents)
}

// PlatformFee is the platform's cut in major units.
func (b Breakdown) PlatformFee() float64 {
	return FromCents(b.PlatformFeeCents)
}
