// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var ErrMissingAPIURL = errors.New("STOREFRONT_API_URL is required")

type Config struct {
	APIURL   string
	Token    string
	TaxRate  decimal.Decimal
	Shipping decimal.Decimal
	Currency currency.Unit
	Workers  int
	Debug    bool

	// Empty RedisAddr keeps the cache in process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Empty NATSURL disables cart activity events.
	NATSURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		APIURL:        os.Getenv("STOREFRONT_API_URL"),
		Token:         os.Getenv("STOREFRONT_TOKEN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NATSURL:       os.Getenv("NATS_URL"),
	}
	if cfg.APIURL == "" {
		return nil, ErrMissingAPIURL
	}

	var err error
	if cfg.TaxRate, err = decimalEnv("STOREFRONT_TAX_RATE", "0.08"); err != nil {
		return nil, err
	}
	if cfg.TaxRate.IsNegative() {
		return nil, fmt.Errorf("STOREFRONT_TAX_RATE must not be negative: %s", cfg.TaxRate)
	}
	if cfg.Shipping, err = decimalEnv("STOREFRONT_SHIPPING", "0"); err != nil {
		return nil, err
	}
	if cfg.Shipping.IsNegative() {
		return nil, fmt.Errorf("STOREFRONT_SHIPPING must not be negative: %s", cfg.Shipping)
	}

	code := getenvDefault("STOREFRONT_CURRENCY", "USD")
	if cfg.Currency, err = currency.ParseISO(code); err != nil {
		return nil, fmt.Errorf("invalid STOREFRONT_CURRENCY %q: %w", code, err)
	}

	if cfg.Workers, err = intEnv("STOREFRONT_WORKERS", "8"); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("STOREFRONT_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	debug := getenvDefault("STOREFRONT_DEBUG", "false")
	if cfg.Debug, err = strconv.ParseBool(debug); err != nil {
		return nil, fmt.Errorf("invalid STOREFRONT_DEBUG %q: %w", debug, err)
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func decimalEnv(key, fallback string) (decimal.Decimal, error) {
	raw := getenvDefault(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func intEnv(key, fallback string) (int, error) {
	raw := getenvDefault(key, fallback)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
