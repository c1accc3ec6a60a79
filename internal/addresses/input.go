package addresses

import (
	"strings"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// AddressInput carries caller-supplied address fields. IsDefault and
// IsCurrent are pointers so an update can leave a flag untouched.
type AddressInput struct {
	FullName   string             `json:"full_name"`
	Mobile     string             `json:"mobile"`
	Street     string             `json:"street"`
	City       string             `json:"city"`
	State      string             `json:"state"`
	PostalCode string             `json:"postal_code"`
	Country    string             `json:"country"`
	Type       domain.AddressType `json:"type"`
	IsDefault  *bool              `json:"is_default,omitempty"`
	IsCurrent  *bool              `json:"is_current,omitempty"`
}

func (in AddressInput) normalize() AddressInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Street = strings.TrimSpace(in.Street)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Country = strings.TrimSpace(in.Country)
	in.Type = domain.AddressType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if in.Type == "" {
		in.Type = domain.AddressTypeHome
	}
	return in
}

func (in AddressInput) validate() error {
	if in.FullName == "" {
		return domain.NewValidationError("full_name", "is required")
	}
	if !isDigits(in.Mobile, 10) {
		return domain.NewValidationError("mobile", "must be exactly 10 digits")
	}
	if in.Street == "" {
		return domain.NewValidationError("street", "is required")
	}
	if !IsPostalCode(in.PostalCode) {
		return domain.NewValidationError("postal_code", "must be exactly 6 digits")
	}
	if in.City == "" {
		return domain.NewValidationError("city", "is required")
	}
	if in.State == "" {
		return domain.NewValidationError("state", "is required")
	}
	if in.Country == "" {
		return domain.NewValidationError("country", "is required")
	}
	if !in.Type.Valid() {
		return domain.NewValidationError("type", "must be one of home, work, other")
	}
	return nil
}

func (in AddressInput) needsPlace() bool {
	return in.City == "" || in.State == "" || in.Country == ""
}

func (in AddressInput) withPlace(place domain.Place) AddressInput {
	if in.City == "" {
		in.City = place.City
	}
	if in.State == "" {
		in.State = place.State
	}
	if in.Country == "" {
		in.Country = place.Country
	}
	return in
}

func (in AddressInput) applyTo(addr *domain.Address) {
	addr.FullName = in.FullName
	addr.Mobile = in.Mobile
	addr.Street = in.Street
	addr.City = in.City
	addr.State = in.State
	addr.PostalCode = in.PostalCode
	addr.Country = in.Country
	addr.Type = in.Type
}

// IsPostalCode reports whether code is a 6-digit postal code.
func IsPostalCode(code string) bool {
	return isDigits(code, 6)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
