package store

import (
	"context"
	"fmt"

	"storefront/domain"
)

// NewCatalog constructs a seeded domain.CatalogStore by source: "embedded" or "file".
// For a file seed, provide the file path in path; for embedded, path is ignored.
func NewCatalog(ctx context.Context, source, path string) (*InMemoryCatalog, error) {
	var (
		products []domain.Product
		err      error
	)
	switch source {
	case "embedded", "":
		products, err = EmbeddedSeed()
	case "file":
		if path == "" {
			return nil, fmt.Errorf("file path required for file catalog")
		}
		products, err = LoadSeedFile(path)
	default:
		return nil, fmt.Errorf("unknown catalog source: %s", source)
	}
	if err != nil {
		return nil, err
	}

	c := NewInMemoryCatalog()
	if err := c.Import(ctx, products); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return c, nil
}
