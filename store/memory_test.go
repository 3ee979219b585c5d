package store

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"storefront/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCatalog(t *testing.T) *InMemoryCatalog {
	t.Helper()
	s := NewInMemoryCatalog()
	err := s.Import(context.Background(), []domain.Product{
		{ID: 1, Name: "Gamma", Price: price("19.95"), Stock: domain.Stock{"white": {"M": 5, "XS": 1}}},
		{ID: 2, Name: "Alpha", Price: price("9.50"), Stock: domain.Stock{"black": {"L": 0}}},
		{ID: 3, Name: "Beta", Price: price("30"), Stock: domain.Stock{"black": {"S": 2}}},
	})
	if err != nil {
		t.Fatalf("setup import failed: %v", err)
	}
	return s
}

func TestImportValidation_TableDriven(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		product domain.Product
		wantErr bool
	}{
		{"zero id", domain.Product{ID: 0, Name: "A", Price: price("1")}, true},
		{"empty name", domain.Product{ID: 1, Name: "", Price: price("1")}, true},
		{"negative price", domain.Product{ID: 2, Name: "A", Price: price("-1")}, true},
		{"negative stock", domain.Product{ID: 3, Name: "A", Price: price("1"), Stock: domain.Stock{"white": {"M": -1}}}, true},
		{"bad review rating", domain.Product{ID: 4, Name: "A", Price: price("1"), Reviews: []domain.Review{{Name: "n", Text: "t", Rating: 9}}}, true},
		{"valid", domain.Product{ID: 5, Name: "A", Price: price("0"), Stock: domain.Stock{"white": {"M": 0}}}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := NewInMemoryCatalog()
			err := s.Import(ctx, []domain.Product{tc.product})
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for case %s", tc.name)
			}
			if tc.wantErr && !domain.IsValidationError(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestImport_AggregatesErrorsAndKeepsValid(t *testing.T) {
	s := NewInMemoryCatalog()
	err := s.Import(context.Background(), []domain.Product{
		{ID: 1, Name: "", Price: price("1")},
		{ID: 2, Name: "ok", Price: price("1")},
		{ID: 2, Name: "dup", Price: price("1")},
		{ID: 3, Name: "neg", Price: price("-3")},
	})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if n := len(multierr.Errors(err)); n != 3 {
		t.Fatalf("expected 3 collected errors, got %d: %v", n, err)
	}
	if !domain.IsInvariantViolationError(err) {
		t.Fatalf("expected the duplicate to be reported, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected the single valid product to be kept, got %d", s.Len())
	}
}

func TestGetAndStock_NotFoundAndMissingKeys(t *testing.T) {
	s := newTestCatalog(t)
	ctx := context.Background()

	t.Run("get not found", func(t *testing.T) {
		_, err := s.Get(ctx, 99)
		if !domain.IsNotFoundError(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("stock for unknown product", func(t *testing.T) {
		_, err := s.Stock(ctx, 99, "white", "M")
		if !domain.IsNotFoundError(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("stock for missing colour and size is zero", func(t *testing.T) {
		for _, k := range [][2]string{{"red", "M"}, {"white", "XXL"}} {
			n, err := s.Stock(ctx, 1, k[0], k[1])
			if err != nil || n != 0 {
				t.Fatalf("Stock(%s,%s) = %d, %v; want 0, nil", k[0], k[1], n, err)
			}
		}
	})

	t.Run("get returns a copy", func(t *testing.T) {
		p, _ := s.Get(ctx, 1)
		p.Stock["white"]["M"] = 0
		if n, _ := s.Stock(ctx, 1, "white", "M"); n != 5 {
			t.Fatalf("catalog mutated through returned product: %d", n)
		}
	})
}

func TestAdjustStock(t *testing.T) {
	s := newTestCatalog(t)
	ctx := context.Background()

	if err := s.AdjustStock(ctx, 1, "white", "M", -2); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if n, _ := s.Stock(ctx, 1, "white", "M"); n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}

	err := s.AdjustStock(ctx, 1, "white", "M", -4)
	if !domain.IsInvariantViolationError(err) {
		t.Fatalf("expected InvariantViolationError, got %v", err)
	}
	if n, _ := s.Stock(ctx, 1, "white", "M"); n != 3 {
		t.Fatalf("rejected adjustment must not mutate, got %d", n)
	}

	if err := s.AdjustStock(ctx, 1, "red", "L", 2); err != nil {
		t.Fatalf("restoring to an unseeded variant failed: %v", err)
	}
	if n, _ := s.Stock(ctx, 1, "red", "L"); n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}

	if err := s.AdjustStock(ctx, 42, "white", "M", 1); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAppendReview(t *testing.T) {
	s := newTestCatalog(t)
	ctx := context.Background()

	_ = s.AppendReview(ctx, 1, domain.Review{Name: "a", Text: "first", Rating: 4})
	_ = s.AppendReview(ctx, 1, domain.Review{Name: "b", Text: "second", Rating: 5})
	p, _ := s.Get(ctx, 1)
	if len(p.Reviews) != 2 || p.Reviews[0].Text != "first" || p.Reviews[1].Text != "second" {
		t.Fatalf("reviews not appended in order: %+v", p.Reviews)
	}
	if err := s.AppendReview(ctx, 77, domain.Review{}); !domain.IsNotFoundError(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListSortingAndFiltering(t *testing.T) {
	s := newTestCatalog(t)
	ctx := context.Background()

	t.Run("default order is by id", func(t *testing.T) {
		out, err := s.List(ctx, domain.ListFilter{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(out) != 3 || out[0].ID != 1 || out[2].ID != 3 {
			t.Fatalf("unexpected order: %+v", out)
		}
	})

	t.Run("filter by price range", func(t *testing.T) {
		lo, hi := price("10"), price("20")
		out, _ := s.List(ctx, domain.ListFilter{MinPrice: &lo, MaxPrice: &hi})
		if len(out) != 1 || out[0].ID != 1 {
			t.Fatalf("unexpected price filter result: %+v", out)
		}
	})

	t.Run("in stock only", func(t *testing.T) {
		out, _ := s.List(ctx, domain.ListFilter{InStockOnly: true})
		if len(out) != 2 {
			t.Fatalf("expected 2 in-stock products, got %d", len(out))
		}
	})

	t.Run("sort by price desc", func(t *testing.T) {
		out, _ := s.List(ctx, domain.ListFilter{SortBy: "price", Order: "desc"})
		if out[0].ID != 3 || out[2].ID != 2 {
			t.Fatalf("unexpected sort order by price desc: %+v", out)
		}
	})

	t.Run("sort by name", func(t *testing.T) {
		out, _ := s.List(ctx, domain.ListFilter{SortBy: "name"})
		if out[0].Name != "Alpha" || out[2].Name != "Gamma" {
			t.Fatalf("unexpected sort order by name: %+v", out)
		}
	})
}

func TestCanceledContext(t *testing.T) {
	s := newTestCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Get(ctx, 1); err == nil {
		t.Fatal("expected context error from Get")
	}
	if err := s.AdjustStock(ctx, 1, "white", "M", -1); err == nil {
		t.Fatal("expected context error from AdjustStock")
	}
	if err := s.Import(ctx, nil); err == nil {
		t.Fatal("expected context error from Import")
	}
}

func TestInMemoryCatalog_ConcurrentReservationsNeverOversell(t *testing.T) {
	s := NewInMemoryCatalog()
	ctx := context.Background()
	_ = s.Import(ctx, []domain.Product{{ID: 1, Name: "X", Price: price("1"), Stock: domain.Stock{"white": {"M": 50}}}})

	var wg sync.WaitGroup
	var granted int64
	n := 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := s.AdjustStock(ctx, 1, "white", "M", -1); err == nil {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	if granted != 50 {
		t.Fatalf("expected exactly 50 successful reservations, got %d", granted)
	}
	if left, _ := s.Stock(ctx, 1, "white", "M"); left != 0 {
		t.Fatalf("expected 0 left, got %d", left)
	}
}

func BenchmarkInMemoryCatalog_AdjustStock(b *testing.B) {
	s := NewInMemoryCatalog()
	_ = s.Import(context.Background(), []domain.Product{{ID: 1, Name: "Bench", Price: price("1")}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.AdjustStock(context.Background(), 1, "white", "M"+strconv.Itoa(i%6), 1)
	}
}
