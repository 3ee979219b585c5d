// Package domain defines core business types and interfaces.
package domain

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Stock maps colour -> size -> units on hand
type Stock map[string]map[string]int

// Product represents a catalog product and its per-variant stock
type Product struct {
	ID          int             `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Stock       Stock           `json:"stockOnHand" yaml:"stockOnHand"`
	Reviews     []Review        `json:"reviews,omitempty" yaml:"reviews,omitempty"`
}

// Review is one entry of a product's append-only review ledger
type Review struct {
	Name   string `json:"name" yaml:"name"`
	Text   string `json:"text" yaml:"text"`
	Rating int    `json:"rating" yaml:"rating"`
}

// StockFor returns the units on hand for colour/size, 0 when the combination is absent.
func (p Product) StockFor(colour, size string) int {
	sizes, ok := p.Stock[colour]
	if !ok {
		return 0
	}
	return sizes[size]
}

// TotalStock sums every variant's units on hand.
func (p Product) TotalStock() int {
	total := 0
	for _, sizes := range p.Stock {
		for _, n := range sizes {
			total += n
		}
	}
	return total
}

// HasColour reports whether the product is offered in colour.
func (p Product) HasColour(colour string) bool {
	_, ok := p.Stock[colour]
	return ok
}

// HasSize reports whether the product is offered in size for colour.
func (p Product) HasSize(colour, size string) bool {
	_, ok := p.Stock[colour][size]
	return ok
}

// Colours lists the product's colours alphabetically.
func (p Product) Colours() []string {
	out := make([]string, 0, len(p.Stock))
	for c := range p.Stock {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Sizes lists the sizes offered for colour in garment order.
func (p Product) Sizes(colour string) []string {
	out := make([]string, 0, len(p.Stock[colour]))
	for s := range p.Stock[colour] {
		out = append(out, s)
	}
	SortSizes(out)
	return out
}

// Clone returns a deep copy so callers cannot mutate catalog state.
func (p Product) Clone() Product {
	c := p
	c.Stock = make(Stock, len(p.Stock))
	for colour, sizes := range p.Stock {
		m := make(map[string]int, len(sizes))
		for s, n := range sizes {
			m[s] = n
		}
		c.Stock[colour] = m
	}
	if p.Reviews != nil {
		c.Reviews = append([]Review(nil), p.Reviews...)
	}
	return c
}

var sizeRank = map[string]int{"XS": 0, "S": 1, "M": 2, "L": 3, "XL": 4, "XXL": 5}

// SortSizes orders sizes XS..XXL, unknown sizes last and alphabetically.
func SortSizes(sizes []string) {
	sort.Slice(sizes, func(i, j int) bool {
		ri, iok := sizeRank[sizes[i]]
		rj, jok := sizeRank[sizes[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return sizes[i] < sizes[j]
		}
	})
}

// ListFilter allows filtering and sorting results from List
type ListFilter struct {
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	InStockOnly bool
	SortBy      string // "id", "name", "price"
	Order       string // "asc" or "desc"
}

// CatalogStore defines the storage interface for the product catalog.
// It is the only holder of stock-on-hand; the cart engine is its only stock writer.
type CatalogStore interface {
	Get(ctx context.Context, id int) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Stock(ctx context.Context, id int, colour, size string) (int, error)
	AdjustStock(ctx context.Context, id int, colour, size string, delta int) error
	AppendReview(ctx context.Context, id int, review Review) error
	Import(ctx context.Context, products []Product) error
}
