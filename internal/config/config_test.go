package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		cfg, err := Load("storefront")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Service != "storefront" {
			t.Errorf("expected service storefront, got %s", cfg.Service)
		}
		if !cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.18")) {
			t.Errorf("expected tax rate 0.18, got %s", cfg.Pricing.TaxRate)
		}
		if !cfg.Pricing.ShippingFee.Equal(decimal.NewFromInt(99)) {
			t.Errorf("expected shipping fee 99, got %s", cfg.Pricing.ShippingFee)
		}
		if cfg.Checkout.SessionTTL != 30*time.Minute {
			t.Errorf("expected 30m session ttl, got %s", cfg.Checkout.SessionTTL)
		}
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
logLevel: debug
pricing:
  shippingFee: "49.50"
  freeShippingThreshold: 500
checkout:
  sessionTTL: 5m
kafkaBrokers:
  - kafka-1:9092
  - kafka-2:9092
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("CONFIG_FILE", path)

		cfg, err := Load("storefront")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("expected log level debug, got %s", cfg.LogLevel)
		}
		if !cfg.Pricing.ShippingFee.Equal(decimal.RequireFromString("49.5")) {
			t.Errorf("expected shipping fee 49.50, got %s", cfg.Pricing.ShippingFee)
		}
		if !cfg.Pricing.FreeShippingThreshold.Equal(decimal.NewFromInt(500)) {
			t.Errorf("expected threshold 500, got %s", cfg.Pricing.FreeShippingThreshold)
		}
		if !cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.18")) {
			t.Errorf("expected untouched tax rate, got %s", cfg.Pricing.TaxRate)
		}
		if cfg.Checkout.SessionTTL != 5*time.Minute {
			t.Errorf("expected 5m session ttl, got %s", cfg.Checkout.SessionTTL)
		}
		if len(cfg.KafkaBrokers) != 2 {
			t.Errorf("expected 2 brokers, got %v", cfg.KafkaBrokers)
		}
	})

	t.Run("env wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("CONFIG_FILE", path)
		t.Setenv("PORT", "9100")
		t.Setenv("KAFKA_BROKERS", "a:1,b:2,c:3")
		t.Setenv("TAX_RATE", "0.05")

		cfg, err := Load("storefront")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.PortOr("8081") != "9100" {
			t.Errorf("expected port 9100, got %s", cfg.Port)
		}
		if len(cfg.KafkaBrokers) != 3 {
			t.Errorf("expected 3 brokers, got %v", cfg.KafkaBrokers)
		}
		if !cfg.Pricing.TaxRate.Equal(decimal.RequireFromString("0.05")) {
			t.Errorf("expected tax rate 0.05, got %s", cfg.Pricing.TaxRate)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("CHECKOUT_SESSION_TTL", "soon")
		if _, err := Load("storefront"); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		if _, err := Load("storefront"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestConfig_PortOr(t *testing.T) {
	if got := (Config{}).PortOr("8081"); got != "8081" {
		t.Errorf("expected default port, got %s", got)
	}
	if got := (Config{Port: "abc"}).PortOr("8081"); got != "8081" {
		t.Errorf("expected default port for invalid value, got %s", got)
	}
}
