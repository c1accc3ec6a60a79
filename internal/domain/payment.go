package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodUPI            PaymentMethod = "upi"
	PaymentMethodUPIGPay        PaymentMethod = "upi-gpay"
	PaymentMethodUPIPhonePe     PaymentMethod = "upi-phonepe"
	PaymentMethodUPIPaytm       PaymentMethod = "upi-paytm"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash-on-delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodUPIGPay, PaymentMethodUPIPhonePe, PaymentMethodUPIPaytm,
		PaymentMethodCard, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// IsUPI reports whether the method needs a UPI id as its detail.
func (m PaymentMethod) IsUPI() bool {
	return m == PaymentMethodUPI || strings.HasPrefix(string(m), "upi-")
}

type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateSucceeded PaymentState = "succeeded"
	PaymentStateFailed    PaymentState = "failed"
)

type Payment struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	Method            PaymentMethod   `json:"method"`
	Amount            decimal.Decimal `json:"amount"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	State             PaymentState    `json:"state"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
