package domain

import (
	"errors"
	"testing"
)

func TestPaymentMethod(t *testing.T) {
	tests := []struct {
		method PaymentMethod
		valid  bool
		upi    bool
	}{
		{PaymentMethodUPI, true, true},
		{PaymentMethodUPIGPay, true, true},
		{PaymentMethodUPIPhonePe, true, true},
		{PaymentMethodUPIPaytm, true, true},
		{PaymentMethodCard, true, false},
		{PaymentMethodCashOnDelivery, true, false},
		{"bitcoin", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			if got := tt.method.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.method.IsUPI(); got != tt.upi {
				t.Errorf("IsUPI() = %v, want %v", got, tt.upi)
			}
		})
	}
}

func TestAddressShipping(t *testing.T) {
	addr := Address{
		ID:         "a-1",
		CustomerID: "cust-1",
		FullName:   "Asha Raman",
		Mobile:     "9876543210",
		Street:     "12 Anna Salai",
		City:       "Chennai",
		State:      "Tamil Nadu",
		PostalCode: "600001",
		Country:    "India",
		Type:       AddressTypeHome,
		IsDefault:  true,
	}

	ship := addr.Shipping()
	addr.Street = "changed"

	if ship.AddressID != "a-1" || ship.Street != "12 Anna Salai" || ship.Type != AddressTypeHome {
		t.Errorf("unexpected shipping copy: %+v", ship)
	}
}

func TestErrors(t *testing.T) {
	t.Run("validation error message", func(t *testing.T) {
		if got := NewValidationError("mobile", "must be 10 digits").Error(); got != "mobile: must be 10 digits" {
			t.Errorf("unexpected message %q", got)
		}
		if got := NewValidationError("", "invalid request body").Error(); got != "invalid request body" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("payment error unwraps cause", func(t *testing.T) {
		cause := errors.New("gateway timeout")
		err := error(&PaymentError{OrderID: "o-1", Reason: "provider unavailable", Err: cause})

		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to reach the cause")
		}

		var paymentErr *PaymentError
		if !errors.As(err, &paymentErr) || paymentErr.OrderID != "o-1" {
			t.Errorf("expected PaymentError for o-1, got %v", err)
		}
	})
}

func TestCartSnapshotItemIDs(t *testing.T) {
	snap := CartSnapshot{Items: []CartItem{{ItemID: "i-1"}, {ItemID: "i-2"}}}

	ids := snap.ItemIDs()
	if len(ids) != 2 || ids[0] != "i-1" || ids[1] != "i-2" {
		t.Errorf("unexpected ids %v", ids)
	}
}
