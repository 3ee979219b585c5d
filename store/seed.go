package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storefront/domain"

	"gopkg.in/yaml.v3"
)

//go:embed seed/catalog.yaml
var embeddedCatalog []byte

type seedFile struct {
	Products []domain.Product `json:"products" yaml:"products"`
}

// EmbeddedSeed returns the products of the built-in launch catalog.
func EmbeddedSeed() ([]domain.Product, error) {
	return ParseSeed(embeddedCatalog, "yaml")
}

// LoadSeedFile reads a catalog seed from disk. The format follows the extension:
// .json for JSON, anything else is read as YAML.
func LoadSeedFile(path string) ([]domain.Product, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	products, err := ParseSeed(b, format)
	if err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return products, nil
}

// ParseSeed decodes a seed document. JSON seeds may be a bare array of
// products or an object with a "products" key.
func ParseSeed(b []byte, format string) ([]domain.Product, error) {
	btrim := bytes.TrimSpace(b)
	if len(btrim) == 0 {
		return nil, errors.New("empty seed")
	}

	switch format {
	case "json":
		if btrim[0] == '[' {
			var products []domain.Product
			if err := json.Unmarshal(btrim, &products); err != nil {
				return nil, err
			}
			return products, nil
		}
		var doc seedFile
		if err := json.Unmarshal(btrim, &doc); err != nil {
			return nil, err
		}
		return doc.Products, nil
	case "yaml", "yml":
		var doc seedFile
		if err := yaml.Unmarshal(btrim, &doc); err != nil {
			return nil, err
		}
		return doc.Products, nil
	default:
		return nil, fmt.Errorf("unknown seed format: %s", format)
	}
}
