package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderPlacedEvent struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	Items       []OrderItem     `json:"items"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Timestamp   time.Time       `json:"timestamp"`
}

type PaymentSettledEvent struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	PaymentID   string          `json:"payment_id"`
	Method      PaymentMethod   `json:"method"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	State       PaymentState    `json:"state"`
	Reference   string          `json:"reference,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

const (
	EventTypeOrderPlaced    = "order.placed"
	EventTypePaymentSettled = "order.payment.settled"
)

func (OrderPlacedEvent) EventType() string { return EventTypeOrderPlaced }

func (PaymentSettledEvent) EventType() string { return EventTypePaymentSettled }
