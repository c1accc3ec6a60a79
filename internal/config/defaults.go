package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default returns the configuration used when nothing is overridden.
func Default(service string) Config {
	return Config{
		Service:       service,
		Env:           "dev",
		LogLevel:      "info",
		StorageDriver: "postgres",
		Topics: Topics{
			OrderPlaced:  "order.placed",
			OrderPayment: "order.payment",
		},
		Services: Services{
			Timeout: 10 * time.Second,
		},
		Pricing: DefaultPricing(),
		Checkout: Checkout{
			SessionTTL: 30 * time.Minute,
		},
		Gateway: Gateway{
			DeclineAbove: decimal.NewFromInt(200000),
			MinLatency:   50 * time.Millisecond,
			MaxLatency:   200 * time.Millisecond,
		},
	}
}

// DefaultPricing is 18% tax and a flat 99 shipping fee waived above 1000.
func DefaultPricing() Pricing {
	return Pricing{
		Currency:              "INR",
		TaxRate:               decimal.RequireFromString("0.18"),
		ShippingFee:           decimal.NewFromInt(99),
		FreeShippingThreshold: decimal.NewFromInt(1000),
	}
}
