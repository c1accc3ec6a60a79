package domain

import "time"

type AddressType string

const (
	AddressTypeHome  AddressType = "home"
	AddressTypeWork  AddressType = "work"
	AddressTypeOther AddressType = "other"
)

func (t AddressType) Valid() bool {
	switch t {
	case AddressTypeHome, AddressTypeWork, AddressTypeOther:
		return true
	}
	return false
}

// Address is a delivery address owned by a single customer. Per customer at
// most one address is default and at most one is current.
type Address struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	FullName   string      `json:"full_name"`
	Mobile     string      `json:"mobile"`
	Street     string      `json:"street"`
	City       string      `json:"city"`
	State      string      `json:"state"`
	PostalCode string      `json:"postal_code"`
	Country    string      `json:"country"`
	Type       AddressType `json:"type"`
	IsDefault  bool        `json:"is_default"`
	IsCurrent  bool        `json:"is_current"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Shipping returns a value copy of the address fields for embedding in an order.
func (a Address) Shipping() ShippingAddress {
	return ShippingAddress{
		AddressID:  a.ID,
		FullName:   a.FullName,
		Mobile:     a.Mobile,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Type:       a.Type,
	}
}

// Place is the result of a postal code lookup.
type Place struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}
