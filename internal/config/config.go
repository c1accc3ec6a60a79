// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Service  string `yaml:"service"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	Port     string `yaml:"port"`

	// StorageDriver is "postgres" or "memory".
	StorageDriver string   `yaml:"storageDriver"`
	PostgresURL   string   `yaml:"postgresURL"`
	KafkaBrokers  []string `yaml:"kafkaBrokers"`

	Topics   Topics   `yaml:"topics"`
	Services Services `yaml:"services"`
	Pricing  Pricing  `yaml:"pricing"`
	Checkout Checkout `yaml:"checkout"`
	Gateway  Gateway  `yaml:"gateway"`
}

type Topics struct {
	OrderPlaced  string `yaml:"orderPlaced"`
	OrderPayment string `yaml:"orderPayment"`
}

// Services holds base URLs of collaborators reached over HTTP.
type Services struct {
	PaymentProvider string        `yaml:"paymentProvider"`
	Cart            string        `yaml:"cart"`
	PostalLookup    string        `yaml:"postalLookup"`
	Email           string        `yaml:"email"`
	Storefront      string        `yaml:"storefront"`
	Timeout         time.Duration `yaml:"timeout"`
}

type Pricing struct {
	Currency              string          `yaml:"currency"`
	TaxRate               decimal.Decimal `yaml:"taxRate"`
	ShippingFee           decimal.Decimal `yaml:"shippingFee"`
	FreeShippingThreshold decimal.Decimal `yaml:"freeShippingThreshold"`
}

type Checkout struct {
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

// Gateway configures the mock payment provider.
type Gateway struct {
	DeclineAbove decimal.Decimal `yaml:"declineAbove"`
	MinLatency   time.Duration   `yaml:"minLatency"`
	MaxLatency   time.Duration   `yaml:"maxLatency"`
}

// Load builds the configuration for the named service. CONFIG_FILE, when set,
// points at a YAML file applied over the defaults; environment variables win
// over both.
func Load(service string) (Config, error) {
	cfg := Default(service)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile merges a YAML file into c. Keys absent from the file keep their
// current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing YAML config: %w", err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Port, "PORT")
	setString(&c.StorageDriver, "STORAGE_DRIVER")
	setString(&c.PostgresURL, "POSTGRES_URL")
	setString(&c.Topics.OrderPlaced, "ORDER_PLACED_TOPIC")
	setString(&c.Topics.OrderPayment, "ORDER_PAYMENT_TOPIC")
	setString(&c.Services.PaymentProvider, "PAYMENT_PROVIDER_URL")
	setString(&c.Services.Cart, "CART_SERVICE_URL")
	setString(&c.Services.PostalLookup, "POSTAL_LOOKUP_URL")
	setString(&c.Services.Email, "EMAIL_SERVICE_URL")
	setString(&c.Services.Storefront, "STOREFRONT_URL")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = strings.Split(v, ",")
	}

	if err := setDuration(&c.Services.Timeout, "HTTP_CLIENT_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Checkout.SessionTTL, "CHECKOUT_SESSION_TTL"); err != nil {
		return err
	}
	if err := setDecimal(&c.Pricing.TaxRate, "TAX_RATE"); err != nil {
		return err
	}
	if err := setDecimal(&c.Pricing.ShippingFee, "SHIPPING_FEE"); err != nil {
		return err
	}
	if err := setDecimal(&c.Pricing.FreeShippingThreshold, "FREE_SHIPPING_THRESHOLD"); err != nil {
		return err
	}
	if err := setDecimal(&c.Gateway.DeclineAbove, "GATEWAY_DECLINE_ABOVE"); err != nil {
		return err
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setDecimal(dst *decimal.Decimal, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = d
	return nil
}

// PortOr returns the configured port or def when none is set.
func (c Config) PortOr(def string) string {
	if c.Port == "" {
		return def
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return def
	}
	return c.Port
}
