package cart

import (
	"storefront/domain"

	"github.com/shopspring/decimal"
)

// PricingOptions are the store-wide pricing constants.
type PricingOptions struct {
	ShippingRate         decimal.Decimal
	ItemsPerShippingUnit int
	// LegacyRounding rounds the premium discount to cents before it is
	// subtracted, reproducing the totals the storefront has always shown.
	// Off, every intermediate stays exact and only the display is rounded.
	LegacyRounding bool
}

// DefaultPricing is 9.95 per shipping unit, one unit per 5 items.
func DefaultPricing() PricingOptions {
	return PricingOptions{
		ShippingRate:         decimal.RequireFromString("9.95"),
		ItemsPerShippingUnit: 5,
	}
}

// Totals is the price breakdown of a cart for one customer.
type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	ShippingUnits   int             `json:"shippingUnits"`
	Shipping        decimal.Decimal `json:"shipping"`
	ShippingApplied bool            `json:"shippingApplied"`
	ShippingWaived  bool            `json:"shippingWaived"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
}

// DisplayTotals are Totals formatted to two decimal places.
type DisplayTotals struct {
	Subtotal   string `json:"subtotal"`
	Discount   string `json:"discount"`
	Shipping   string `json:"shipping"`
	GrandTotal string `json:"grandTotal"`
}

// Display rounds every amount to cents for presentation.
func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal:   t.Subtotal.StringFixed(2),
		Discount:   t.Discount.StringFixed(2),
		Shipping:   t.Shipping.StringFixed(2),
		GrandTotal: t.GrandTotal.StringFixed(2),
	}
}

// Subtotal is Σ qty * unit price, exact.
func Subtotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ShippingUnits is ceil(itemCount / perUnit); zero items need no shipping.
func ShippingUnits(itemCount, perUnit int) int {
	if itemCount <= 0 {
		return 0
	}
	if perUnit <= 0 {
		perUnit = 1
	}
	return (itemCount + perUnit - 1) / perUnit
}

// ComputeTotals prices a cart. Shipping is always worked out as rate * units
// once the cart holds anything; it is waived, not dropped, when the free
// shipping offer is on and the pre-discount subtotal reaches the threshold.
func ComputeTotals(lines []domain.CartLine, itemCount int, c domain.CustomerContext, o PricingOptions) Totals {
	t := Totals{Subtotal: Subtotal(lines), Discount: decimal.Zero, Shipping: decimal.Zero}

	if c.Premium {
		base := t.Subtotal
		if o.LegacyRounding {
			base = base.Round(2)
		}
		t.Discount = base.Mul(c.DiscountRate)
		if o.LegacyRounding {
			t.Discount = t.Discount.Round(2)
		}
	}

	t.ShippingUnits = ShippingUnits(itemCount, o.ItemsPerShippingUnit)
	t.Shipping = o.ShippingRate.Mul(decimal.NewFromInt(int64(t.ShippingUnits)))
	t.ShippingApplied = len(lines) > 0 && itemCount > 0
	t.ShippingWaived = t.ShippingApplied && c.FreeShippingEnabled &&
		t.Subtotal.GreaterThanOrEqual(c.FreeShippingThreshold)

	t.GrandTotal = t.Subtotal.Sub(t.Discount)
	if t.ShippingApplied && !t.ShippingWaived {
		t.GrandTotal = t.GrandTotal.Add(t.Shipping)
	}
	return t
}
