// Package config resolves storefront settings from defaults, an optional
// config file, a .env file and STOREFRONT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/cart"
	"storefront/domain"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix namespaces environment overrides, e.g. STOREFRONT_PRICING_PREMIUM.
const EnvPrefix = "STOREFRONT"

// Keys.
const (
	KeyConfig                = "config"
	KeyLogLevel              = "log-level"
	KeyEnvironment           = "environment"
	KeyCatalogSource         = "catalog.source"
	KeyCatalogFile           = "catalog.file"
	KeyPremium               = "pricing.premium"
	KeyDiscountRate          = "pricing.discount-rate"
	KeyFreeShipping          = "pricing.free-shipping"
	KeyFreeShippingThreshold = "pricing.free-shipping-threshold"
	KeyShippingRate          = "pricing.shipping-rate"
	KeyItemsPerShippingUnit  = "pricing.items-per-shipping-unit"
	KeyLegacyRounding        = "pricing.legacy-rounding"
	KeyNotifyDuration        = "notify.duration"
	KeyCloseDelay            = "checkout.close-delay"
	KeyDisplaySuffix         = "storefront.display-suffix"
	KeyDefaultColour         = "storefront.default-colour"
	KeyDefaultSide           = "storefront.default-side"
	KeyMaxQty                = "storefront.max-qty"
	KeyTheme                 = "storefront.theme"
)

// Catalog selects the seed the catalog store is loaded from.
type Catalog struct {
	Source string `validate:"oneof=embedded file"`
	File   string `validate:"required_if=Source file"`
}

// Pricing holds the shopper context and store-wide pricing constants.
type Pricing struct {
	Premium               bool
	DiscountRate          decimal.Decimal
	FreeShipping          bool
	FreeShippingThreshold decimal.Decimal
	ShippingRate          decimal.Decimal
	ItemsPerShippingUnit  int `validate:"min=1"`
	LegacyRounding        bool
}

// Storefront holds presentation defaults.
type Storefront struct {
	DisplaySuffix string
	DefaultColour string `validate:"required"`
	DefaultSide   string `validate:"oneof=front back"`
	MaxQty        int    `validate:"min=1,max=99"`
	Theme         string `validate:"oneof=light dark"`
}

// Config is the resolved configuration.
type Config struct {
	LogLevel       string `validate:"omitempty,oneof=debug info warn error"`
	Environment    string `validate:"required"`
	Catalog        Catalog
	Pricing        Pricing
	NotifyDuration time.Duration `validate:"gt=0"`
	CloseDelay     time.Duration `validate:"gte=0"`
	Storefront     Storefront
}

// SetDefaults registers the launch storefront's settings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyEnvironment, "development")
	v.SetDefault(KeyCatalogSource, "embedded")
	v.SetDefault(KeyCatalogFile, "")
	v.SetDefault(KeyPremium, true)
	v.SetDefault(KeyDiscountRate, "0.1")
	v.SetDefault(KeyFreeShipping, true)
	v.SetDefault(KeyFreeShippingThreshold, "50")
	v.SetDefault(KeyShippingRate, "9.95")
	v.SetDefault(KeyItemsPerShippingUnit, 5)
	v.SetDefault(KeyLegacyRounding, false)
	v.SetDefault(KeyNotifyDuration, "2s")
	v.SetDefault(KeyCloseDelay, "2s")
	v.SetDefault(KeyDisplaySuffix, " Meme-Tee")
	v.SetDefault(KeyDefaultColour, "white")
	v.SetDefault(KeyDefaultSide, "front")
	v.SetDefault(KeyMaxQty, 5)
	v.SetDefault(KeyTheme, "light")
}

// BindEnv loads .env (if present) into the process environment and makes v
// read STOREFRONT_* overrides.
func BindEnv(v *viper.Viper) {
	_ = godotenv.Load()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load reads the config file named by the "config" key, if any, then
// resolves and validates every setting.
func Load(v *viper.Viper) (Config, error) {
	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var errs error
	dec := func(key string) decimal.Decimal {
		d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = multierr.Append(errs, domain.NewValidationError(key, "must be a decimal", v.GetString(key)))
		}
		return d
	}
	dur := func(key string) time.Duration {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			errs = multierr.Append(errs, domain.NewValidationError(key, "must be a duration", v.GetString(key)))
		}
		return d
	}

	cfg := Config{
		LogLevel:    strings.ToLower(v.GetString(KeyLogLevel)),
		Environment: v.GetString(KeyEnvironment),
		Catalog: Catalog{
			Source: v.GetString(KeyCatalogSource),
			File:   v.GetString(KeyCatalogFile),
		},
		Pricing: Pricing{
			Premium:               v.GetBool(KeyPremium),
			DiscountRate:          dec(KeyDiscountRate),
			FreeShipping:          v.GetBool(KeyFreeShipping),
			FreeShippingThreshold: dec(KeyFreeShippingThreshold),
			ShippingRate:          dec(KeyShippingRate),
			ItemsPerShippingUnit:  v.GetInt(KeyItemsPerShippingUnit),
			LegacyRounding:        v.GetBool(KeyLegacyRounding),
		},
		NotifyDuration: dur(KeyNotifyDuration),
		CloseDelay:     dur(KeyCloseDelay),
		Storefront: Storefront{
			DisplaySuffix: v.GetString(KeyDisplaySuffix),
			DefaultColour: v.GetString(KeyDefaultColour),
			DefaultSide:   v.GetString(KeyDefaultSide),
			MaxQty:        v.GetInt(KeyMaxQty),
			Theme:         v.GetString(KeyTheme),
		},
	}
	if errs != nil {
		return Config{}, errs
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all failures together.
func (c Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = multierr.Append(errs, domain.NewValidationError(fe.Namespace(), "failed "+fe.Tag(), fe.Value()))
		}
	}

	one := decimal.NewFromInt(1)
	if c.Pricing.DiscountRate.IsNegative() || c.Pricing.DiscountRate.GreaterThan(one) {
		errs = multierr.Append(errs, domain.NewValidationError(KeyDiscountRate, "must be between 0 and 1", c.Pricing.DiscountRate))
	}
	if c.Pricing.FreeShippingThreshold.IsNegative() {
		errs = multierr.Append(errs, domain.NewValidationError(KeyFreeShippingThreshold, "must not be negative", c.Pricing.FreeShippingThreshold))
	}
	if c.Pricing.ShippingRate.IsNegative() {
		errs = multierr.Append(errs, domain.NewValidationError(KeyShippingRate, "must not be negative", c.Pricing.ShippingRate))
	}
	return errs
}

// Customer is the pricing context of the configured shopper.
func (c Config) Customer() domain.CustomerContext {
	return domain.CustomerContext{
		Premium:               c.Pricing.Premium,
		DiscountRate:          c.Pricing.DiscountRate,
		FreeShippingEnabled:   c.Pricing.FreeShipping,
		FreeShippingThreshold: c.Pricing.FreeShippingThreshold,
	}
}

// Engine is the cart engine configuration.
func (c Config) Engine() cart.Config {
	return cart.Config{
		DisplaySuffix:  c.Storefront.DisplaySuffix,
		NotifyDuration: c.NotifyDuration,
		CloseDelay:     c.CloseDelay,
		Pricing: cart.PricingOptions{
			ShippingRate:         c.Pricing.ShippingRate,
			ItemsPerShippingUnit: c.Pricing.ItemsPerShippingUnit,
			LegacyRounding:       c.Pricing.LegacyRounding,
		},
	}
}
