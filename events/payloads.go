package events

import (
	"storefront/domain"
)

// AddToCart is published after a variant is committed to the cart.
type AddToCart struct {
	Product domain.Product
	Line    domain.CartLine
	Qty     int
	Merged  bool
}

// Checkout is published after a successful checkout.
type Checkout struct {
	OrderID   string
	ItemCount int
}

// CartClose asks the presentation layer to hide the cart.
type CartClose struct {
	OrderID string
}

// TierChanged is published when the shopper's premium flag flips.
type TierChanged struct {
	Premium bool
}

// ThemeChanged is published when the colour scheme changes.
type ThemeChanged struct {
	Theme string
}
