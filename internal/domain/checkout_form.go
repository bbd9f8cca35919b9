package domain

import "strings"

const DefaultCountry = "United States"

// CheckoutForm is the shopper-supplied input for placing an order.
type CheckoutForm struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zipCode"`
	Country    string `json:"country"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	CardName   string `json:"cardName"`
}

func (f CheckoutForm) Customer() Customer {
	return Customer{
		Name:  strings.TrimSpace(f.FirstName) + " " + strings.TrimSpace(f.LastName),
		Email: strings.TrimSpace(f.Email),
		Phone: strings.TrimSpace(f.Phone),
	}
}

func (f CheckoutForm) ShippingAddress() ShippingAddress {
	country := strings.TrimSpace(f.Country)
	if country == "" {
		country = DefaultCountry
	}
	return ShippingAddress{
		Address: strings.TrimSpace(f.Address),
		City:    strings.TrimSpace(f.City),
		State:   strings.TrimSpace(f.State),
		ZipCode: strings.TrimSpace(f.ZipCode),
		Country: country,
	}
}
