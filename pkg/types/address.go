package types

import "strings"

const DefaultCountry = "India"

// AddressSnapshot is the delivery address copied onto an order at checkout.
// It is stored as JSON so later edits to the live address never touch placed orders.
type AddressSnapshot struct {
	AddressID  string  `json:"address_id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Type       string  `json:"type"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	Landmark   *string `json:"landmark,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Normalize trims fields and applies the default country.
func (a AddressSnapshot) Normalize() AddressSnapshot {
	a.Name = strings.TrimSpace(a.Name)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// ProductSnapshot is the catalog product copied onto an order at checkout.
type ProductSnapshot struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Category  string `json:"category"`
}

// VendorSnapshot is the vendor copied onto an order at checkout.
type VendorSnapshot struct {
	VendorID   string `json:"vendor_id"`
	UserID     string `json:"user_id"`
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name"`
}
