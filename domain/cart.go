package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Quantity is either unselected or a chosen unit count.
type Quantity struct {
	n   int
	set bool
}

// Unselected is the quantity before the shopper picks one.
func Unselected() Quantity { return Quantity{} }

// Selected wraps a chosen unit count.
func Selected(n int) Quantity { return Quantity{n: n, set: true} }

// Value returns the count and whether one was chosen.
func (q Quantity) Value() (int, bool) { return q.n, q.set }

// IsSelected reports whether a positive count was chosen.
func (q Quantity) IsSelected() bool { return q.set && q.n > 0 }

func (q Quantity) String() string {
	if !q.set {
		return "Qty"
	}
	return strconv.Itoa(q.n)
}

// Selection is the shopper's pending, uncommitted choice for one product.
// An empty Size means no size has been picked yet.
type Selection struct {
	Colour string   `json:"colour"`
	Size   string   `json:"size"`
	Side   string   `json:"side"`
	Qty    Quantity `json:"-"`
}

// CartLine is one committed variant in the cart.
type CartLine struct {
	ProductID   int             `json:"productId"`
	DisplayName string          `json:"displayName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Colour      string          `json:"colour"`
	Size        string          `json:"size"`
	Qty         int             `json:"qty"`
}

// LineTotal is qty * unit price.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// SameVariant reports whether two lines share the merge key (display name, colour, size).
func (l CartLine) SameVariant(displayName, colour, size string) bool {
	return l.DisplayName == displayName && l.Colour == colour && l.Size == size
}

// CustomerContext carries the pricing inputs that belong to the shopper, not the cart.
type CustomerContext struct {
	Premium               bool            `json:"premium"`
	DiscountRate          decimal.Decimal `json:"discountRate"`
	FreeShippingEnabled   bool            `json:"freeShippingEnabled"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
}
