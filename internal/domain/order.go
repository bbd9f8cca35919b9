package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrIllegalTransition = errors.New("illegal transition of order status")

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Order is an immutable snapshot of a completed checkout.
type Order struct {
	ID                string          `json:"id"`
	CreatedAt         time.Time       `json:"createdAt"`
	Status            OrderStatus     `json:"status"`
	LineItemsSnapshot []CartLineItem  `json:"lineItemsSnapshot"`
	Subtotal          float64         `json:"subtotal"`
	Tax               float64         `json:"tax"`
	Shipping          float64         `json:"shipping"`
	Total             float64         `json:"total"`
	Customer          Customer        `json:"customer"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
}

func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.LineItemsSnapshot {
		n += item.Quantity
	}
	return n
}

// WithStatus returns a copy of the order in the next status.
// The id, creation time and line items are carried over unchanged.
func (o Order) WithStatus(next OrderStatus) (Order, error) {
	if !o.Status.CanTransitionTo(next) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, next)
	}
	out := o
	out.LineItemsSnapshot = CloneItems(o.LineItemsSnapshot)
	out.Status = next
	return out, nil
}
