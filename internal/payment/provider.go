// Package payment is the client side of the payment provider. A charge either
// succeeds with a provider reference or fails; the caller decides what a
// failure means for the order.
package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

type ChargeRequest struct {
	PaymentID string               `json:"payment_id"`
	OrderID   string               `json:"order_id"`
	Method    domain.PaymentMethod `json:"method"`
	Detail    string               `json:"detail,omitempty"`
	Amount    decimal.Decimal      `json:"amount"`
	Currency  string               `json:"currency"`
}

// ChargeResult is the provider's answer. A decline is a result with
// Success false, not an error.
type ChargeResult struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Provider charges a payment method. An error means the outcome is unknown
// (transport failure, provider 5xx).
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
