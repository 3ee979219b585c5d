package domain

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func sampleProduct() Product {
	return Product{
		ID:          1,
		Name:        "Arnold Schwarzenegger",
		Description: "Unisex, 80% cotton, 20% polyester",
		Price:       decimal.RequireFromString("19.95"),
		Stock: Stock{
			"white": {"XS": 1, "M": 5, "XXL": 1},
			"black": {"L": 0},
		},
	}
}

func TestStockFor(t *testing.T) {
	p := sampleProduct()

	tests := []struct {
		name         string
		colour, size string
		want         int
	}{
		{"present", "white", "M", 5},
		{"zero", "black", "L", 0},
		{"missing size", "white", "L", 0},
		{"missing colour", "red", "M", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.StockFor(tt.colour, tt.size); got != tt.want {
				t.Fatalf("StockFor(%s,%s) = %d, want %d", tt.colour, tt.size, got, tt.want)
			}
		})
	}
	if got := p.TotalStock(); got != 7 {
		t.Fatalf("TotalStock = %d, want 7", got)
	}
}

func TestColoursAndSizesOrdering(t *testing.T) {
	p := sampleProduct()
	if got := p.Colours(); !reflect.DeepEqual(got, []string{"black", "white"}) {
		t.Fatalf("unexpected colours %v", got)
	}
	if got := p.Sizes("white"); !reflect.DeepEqual(got, []string{"XS", "M", "XXL"}) {
		t.Fatalf("unexpected sizes %v", got)
	}

	sizes := []string{"XXL", "Kids", "S", "A4", "M"}
	SortSizes(sizes)
	if !reflect.DeepEqual(sizes, []string{"S", "M", "XXL", "A4", "Kids"}) {
		t.Fatalf("unexpected order %v", sizes)
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := sampleProduct()
	p.Reviews = []Review{{Name: "a", Text: "b", Rating: 5}}
	c := p.Clone()
	c.Stock["white"]["M"] = 0
	c.Reviews[0].Name = "changed"

	if p.StockFor("white", "M") != 5 {
		t.Fatal("clone shares stock map with original")
	}
	if p.Reviews[0].Name != "a" {
		t.Fatal("clone shares reviews with original")
	}
}

func TestQuantitySumType(t *testing.T) {
	q := Unselected()
	if q.IsSelected() {
		t.Fatal("zero quantity must be unselected")
	}
	if q.String() != "Qty" {
		t.Fatalf("unexpected sentinel rendering %q", q.String())
	}
	if n, ok := Selected(3).Value(); !ok || n != 3 {
		t.Fatalf("Selected(3).Value() = %d, %v", n, ok)
	}
	if Selected(0).IsSelected() {
		t.Fatal("a zero count is not a usable selection")
	}
}

func TestCartLineHelpers(t *testing.T) {
	l := CartLine{DisplayName: "Thor Meme-Tee", UnitPrice: decimal.RequireFromString("19.95"), Colour: "black", Size: "S", Qty: 3}
	if !l.LineTotal().Equal(decimal.RequireFromString("59.85")) {
		t.Fatalf("unexpected line total %s", l.LineTotal())
	}
	if !l.SameVariant("Thor Meme-Tee", "black", "S") || l.SameVariant("Thor Meme-Tee", "white", "S") {
		t.Fatal("merge key comparison is wrong")
	}
}

func TestListFilterZeroValue(t *testing.T) {
	var f ListFilter

	if f.MinPrice != nil || f.MaxPrice != nil {
		t.Fatalf("expected nil price bounds")
	}
	if f.InStockOnly {
		t.Fatalf("expected InStockOnly false")
	}
	if f.SortBy != "" || f.Order != "" {
		t.Fatalf("expected empty sort fields")
	}
}

// ---- Interface compile-time test ----

// mockCatalogStore ensures CatalogStore interface stays stable
type mockCatalogStore struct{}

func (m *mockCatalogStore) Get(ctx context.Context, id int) (Product, error) {
	return Product{}, nil
}

func (m *mockCatalogStore) List(ctx context.Context, f ListFilter) ([]Product, error) {
	return nil, nil
}

func (m *mockCatalogStore) Stock(ctx context.Context, id int, colour, size string) (int, error) {
	return 0, nil
}

func (m *mockCatalogStore) AdjustStock(ctx context.Context, id int, colour, size string, delta int) error {
	return nil
}

func (m *mockCatalogStore) AppendReview(ctx context.Context, id int, r Review) error {
	return nil
}

func (m *mockCatalogStore) Import(ctx context.Context, p []Product) error {
	return nil
}

// compile-time assertion
var _ CatalogStore = (*mockCatalogStore)(nil)
