package domain

import "github.com/shopspring/decimal"

// CartItem is a line of the customer's cart selected for checkout. It is owned
// by the cart subsystem and only read here.
type CartItem struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type CartSnapshot struct {
	Items    []CartItem      `json:"items"`
	Discount decimal.Decimal `json:"discount"`
}

func (s CartSnapshot) ItemIDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ItemID)
	}
	return ids
}

// OrderItems prices an order from the cart lines.
func (s CartSnapshot) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return items
}
