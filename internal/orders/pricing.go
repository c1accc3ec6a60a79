package orders

import (
	"github.com/shopspring/decimal"

	"github.com/Zyfrr/shopstreak/internal/config"
	"github.com/Zyfrr/shopstreak/internal/domain"
)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// ComputeTotals prices a set of items. Tax is rounded to two places and
// shipping is waived once the subtotal exceeds the free-shipping threshold.
func ComputeTotals(items []domain.OrderItem, discount decimal.Decimal, pricing config.Pricing) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, domain.NewValidationError("items", "at least one item is required")
	}
	if discount.IsNegative() {
		return Totals{}, domain.NewValidationError("discount", "must not be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, domain.NewValidationError("items", "quantity must be positive for "+item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, domain.NewValidationError("items", "unit price must not be negative for "+item.ProductID)
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	tax := subtotal.Mul(pricing.TaxRate).Round(2)

	shipping := pricing.ShippingFee
	if subtotal.GreaterThan(pricing.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	gross := subtotal.Add(tax).Add(shipping)
	if discount.GreaterThan(gross) {
		return Totals{}, domain.NewValidationError("discount", "exceeds order total")
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    gross.Sub(discount),
		Currency: pricing.Currency,
	}, nil
}
