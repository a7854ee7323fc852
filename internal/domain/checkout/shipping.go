package checkout

import "fmt"

// ShippingInfo is the destination snapshot collected at checkout. Every
// field is required.
type ShippingInfo struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
}

// IncompleteShippingError names the first required shipping field found
// blank.
type IncompleteShippingError struct {
	Field string
}

func (e *IncompleteShippingError) Error() string {
	return fmt.Sprintf("shipping %s is required", e.Field)
}

// Validate returns *IncompleteShippingError for the first blank field, in
// the order the checkout form presents them.
func (s ShippingInfo) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", s.Name},
		{"email", s.Email},
		{"phone", s.Phone},
		{"address", s.Address},
		{"city", s.City},
		{"state", s.State},
		{"postal_code", s.PostalCode},
		{"country", s.Country},
	}
	for _, f := range fields {
		if f.value == "" {
			return &IncompleteShippingError{Field: f.name}
		}
	}
	return nil
}
