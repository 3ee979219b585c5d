// Package store provides catalog storage for the storefront.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront/domain"

	"go.uber.org/multierr"
)

// InMemoryCatalog is a thread-safe in-memory domain.CatalogStore
type InMemoryCatalog struct {
	mu       sync.RWMutex
	products map[int]domain.Product
}

// NewInMemoryCatalog constructs an empty InMemoryCatalog
func NewInMemoryCatalog() *InMemoryCatalog {
	return &InMemoryCatalog{
		products: make(map[int]domain.Product),
	}
}

// compile-time assertion that InMemoryCatalog implements domain.CatalogStore
var _ domain.CatalogStore = (*InMemoryCatalog)(nil)

func (s *InMemoryCatalog) Get(ctx context.Context, id int) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError(id)
	}
	return p.Clone(), nil
}

func (s *InMemoryCatalog) List(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if filter.InStockOnly && p.TotalStock() == 0 {
			continue
		}
		out = append(out, p.Clone())
	}

	desc := filter.Order == "desc"
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch filter.SortBy {
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "price":
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		}
		return a.ID < b.ID
	})

	return out, nil
}

func (s *InMemoryCatalog) Stock(ctx context.Context, id int, colour, size string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return 0, domain.NewNotFoundError(id)
	}
	return p.StockFor(colour, size), nil
}

// AdjustStock applies delta to one variant. A result below zero is rejected and
// nothing changes; a positive delta may create a variant that was not seeded.
func (s *InMemoryCatalog) AdjustStock(ctx context.Context, id int, colour, size string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.NewNotFoundError(id)
	}
	next := p.StockFor(colour, size) + delta
	if next < 0 {
		return domain.NewInvariantViolationError("non-negative stock",
			fmt.Sprintf("id=%d %s/%s would be %d", id, colour, size, next))
	}
	if p.Stock == nil {
		p.Stock = make(domain.Stock)
	}
	if p.Stock[colour] == nil {
		p.Stock[colour] = make(map[string]int)
	}
	p.Stock[colour][size] = next
	s.products[id] = p
	return nil
}

func (s *InMemoryCatalog) AppendReview(ctx context.Context, id int, review domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.NewNotFoundError(id)
	}
	p.Reviews = append(p.Reviews, review)
	s.products[id] = p
	return nil
}

// Import validates and adds products. Every invalid or duplicate product is
// reported in the combined error; the valid ones are still added.
func (s *InMemoryCatalog) Import(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, p := range products {
		if err := ValidateProduct(p); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("id=%d: %w", p.ID, err))
			continue
		}
		if _, exists := s.products[p.ID]; exists {
			errs = multierr.Append(errs, domain.NewInvariantViolationError("unique product id",
				fmt.Sprintf("id=%d already exists", p.ID)))
			continue
		}
		s.products[p.ID] = p.Clone()
	}
	return errs
}

// Len reports how many products are loaded.
func (s *InMemoryCatalog) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// ValidateProduct checks the catalog facts of a product.
func ValidateProduct(p domain.Product) error {
	if p.ID <= 0 {
		return domain.NewValidationError("id", "must be positive", p.ID)
	}
	if p.Name == "" {
		return domain.NewValidationError("name", "cannot be empty", p.Name)
	}
	if p.Price.IsNegative() {
		return domain.NewValidationError("price", "must be non-negative", p.Price.String())
	}
	for colour, sizes := range p.Stock {
		for size, n := range sizes {
			if n < 0 {
				return domain.NewValidationError("stockOnHand", "must be non-negative",
					fmt.Sprintf("%s/%s=%d", colour, size, n))
			}
		}
	}
	for _, r := range p.Reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return domain.NewValidationError("rating", "must be between 1 and 5", r.Rating)
		}
	}
	return nil
}
