// Package checkout drives the two-step checkout: choose a delivery address,
// then choose a payment method and confirm. Sessions live in memory only and
// abandoning one leaves nothing behind.
package checkout

import (
	"strconv"
	"time"

	"github.com/Zyfrr/shopstreak/internal/domain"
	"github.com/Zyfrr/shopstreak/internal/orders"
)

type Step string

const (
	StepAddressSelection Step = "address_selection"
	StepPayment          Step = "payment"
	StepCompleted        Step = "completed"
)

type Session struct {
	ID         string
	CustomerID string
	Step       Step

	Cart      domain.CartSnapshot
	Addresses []domain.Address

	SelectedAddressID string
	PaymentMethod     domain.PaymentMethod
	PaymentDetail     string

	// OrderID is set once an order has been placed, paid or not. Later
	// confirms retry payment on it while OrderAddressID still matches the
	// selection.
	OrderID        string
	OrderAddressID string
	Attempt        int
	LastError      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// View is the client-facing snapshot of a session.
type View struct {
	ID                string               `json:"id"`
	Step              Step                 `json:"step"`
	Items             []domain.CartItem    `json:"items"`
	Addresses         []domain.Address     `json:"addresses"`
	SelectedAddressID string               `json:"selected_address_id,omitempty"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method,omitempty"`
	Totals            *orders.Totals       `json:"totals,omitempty"`
	OrderID           string               `json:"order_id,omitempty"`
	LastError         string               `json:"last_error,omitempty"`
	Redirect          string               `json:"redirect,omitempty"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func (s *Session) idempotencyKey() string {
	if s.Attempt == 0 {
		return "checkout:" + s.ID
	}
	return "checkout:" + s.ID + ":" + strconv.Itoa(s.Attempt)
}

func (s *Session) selectedAddress() *domain.Address {
	for i := range s.Addresses {
		if s.Addresses[i].ID == s.SelectedAddressID {
			return &s.Addresses[i]
		}
	}
	return nil
}
