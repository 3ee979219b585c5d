package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/domain"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "embedded", cfg.Catalog.Source)
	assert.True(t, cfg.Pricing.Premium)
	assert.True(t, cfg.Pricing.FreeShipping)
	assert.Equal(t, "0.1", cfg.Pricing.DiscountRate.String())
	assert.Equal(t, "50", cfg.Pricing.FreeShippingThreshold.String())
	assert.Equal(t, "9.95", cfg.Pricing.ShippingRate.String())
	assert.Equal(t, 5, cfg.Pricing.ItemsPerShippingUnit)
	assert.Equal(t, 2*time.Second, cfg.NotifyDuration)
	assert.Equal(t, 2*time.Second, cfg.CloseDelay)
	assert.Equal(t, " Meme-Tee", cfg.Storefront.DisplaySuffix)
	assert.Equal(t, "white", cfg.Storefront.DefaultColour)
	assert.Equal(t, 5, cfg.Storefront.MaxQty)
	assert.Equal(t, "light", cfg.Storefront.Theme)

	customer := cfg.Customer()
	assert.True(t, customer.Premium)
	assert.Equal(t, cfg.Pricing.DiscountRate, customer.DiscountRate)

	engine := cfg.Engine()
	assert.Equal(t, 5, engine.Pricing.ItemsPerShippingUnit)
	assert.False(t, engine.Pricing.LegacyRounding)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_PRICING_PREMIUM", "false")
	t.Setenv("STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD", "75.50")
	t.Setenv("STOREFRONT_STOREFRONT_THEME", "dark")

	v := newViper()
	BindEnv(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.False(t, cfg.Pricing.Premium)
	assert.Equal(t, "75.5", cfg.Pricing.FreeShippingThreshold.String())
	assert.Equal(t, "dark", cfg.Storefront.Theme)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pricing:
  discount-rate: "0.25"
  legacy-rounding: true
storefront:
  max-qty: 3
checkout:
  close-delay: 500ms
`), 0o644))

	v := newViper()
	v.Set(KeyConfig, path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "0.25", cfg.Pricing.DiscountRate.String())
	assert.True(t, cfg.Pricing.LegacyRounding)
	assert.Equal(t, 3, cfg.Storefront.MaxQty)
	assert.Equal(t, 500*time.Millisecond, cfg.CloseDelay)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	v := newViper()
	v.Set(KeyConfig, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		set   map[string]interface{}
		count int
	}{
		{"bad decimal", map[string]interface{}{KeyShippingRate: "cheap"}, 1},
		{"bad duration", map[string]interface{}{KeyNotifyDuration: "soon"}, 1},
		{"discount above one", map[string]interface{}{KeyDiscountRate: "1.5"}, 1},
		{"negative threshold", map[string]interface{}{KeyFreeShippingThreshold: "-1"}, 1},
		{"file source without path", map[string]interface{}{KeyCatalogSource: "file"}, 1},
		{"unknown source", map[string]interface{}{KeyCatalogSource: "s3"}, 1},
		{"several problems", map[string]interface{}{KeyTheme: "neon", KeyMaxQty: 0, KeyItemsPerShippingUnit: 0}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
			assert.Len(t, multierr.Errors(err), tt.count)
		})
	}
}
