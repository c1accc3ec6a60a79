package orders

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Zyfrr/shopstreak/internal/config"
	"github.com/Zyfrr/shopstreak/internal/domain"
)

func item(price string, qty int) domain.OrderItem {
	return domain.OrderItem{ProductID: "p-" + price, Name: "Item", UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestComputeTotals(t *testing.T) {
	pricing := config.DefaultPricing()

	tests := []struct {
		name     string
		items    []domain.OrderItem
		discount string
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{"below threshold pays shipping", []domain.OrderItem{item("250", 2)}, "0", "500", "90", "99", "689"},
		{"above threshold ships free", []domain.OrderItem{item("400", 3)}, "0", "1200", "216", "0", "1416"},
		{"threshold itself pays shipping", []domain.OrderItem{item("1000", 1)}, "0", "1000", "180", "99", "1279"},
		{"discount is subtracted last", []domain.OrderItem{item("400", 3)}, "100", "1200", "216", "0", "1316"},
		{"tax rounds to two places", []domain.OrderItem{item("333.33", 1)}, "0", "333.33", "60", "99", "492.33"},
		{"several lines", []domain.OrderItem{item("99.50", 2), item("10", 5)}, "0", "249", "44.82", "99", "392.82"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := ComputeTotals(tt.items, decimal.RequireFromString(tt.discount), pricing)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			check := func(field string, got decimal.Decimal, want string) {
				if !got.Equal(decimal.RequireFromString(want)) {
					t.Errorf("%s = %s, want %s", field, got, want)
				}
			}
			check("subtotal", totals.Subtotal, tt.subtotal)
			check("tax", totals.Tax, tt.tax)
			check("shipping", totals.Shipping, tt.shipping)
			check("total", totals.Total, tt.total)

			if totals.Currency != "INR" {
				t.Errorf("expected INR, got %s", totals.Currency)
			}
		})
	}
}

func TestComputeTotals_Invalid(t *testing.T) {
	pricing := config.DefaultPricing()

	tests := []struct {
		name     string
		items    []domain.OrderItem
		discount string
	}{
		{"no items", nil, "0"},
		{"zero quantity", []domain.OrderItem{item("100", 0)}, "0"},
		{"negative price", []domain.OrderItem{item("-1", 1)}, "0"},
		{"negative discount", []domain.OrderItem{item("100", 1)}, "-5"},
		{"discount above total", []domain.OrderItem{item("100", 1)}, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotals(tt.items, decimal.RequireFromString(tt.discount), pricing)

			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
