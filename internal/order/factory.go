package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

var (
	TaxRate      = decimal.RequireFromString("0.08")
	ShippingCost = decimal.Zero
)

// Nower supplies the creation time of new orders.
type Nower interface {
	Now() time.Time
}

// IDGenerator supplies order ids.
type IDGenerator interface {
	NewID(now time.Time) string
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// RandomIDs builds ids of the form ORD-<unix millis>-<8 hex chars>.
type RandomIDs struct{}

func (RandomIDs) NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

type Factory struct {
	clock Nower
	ids   IDGenerator
}

func NewFactory(clock Nower, ids IDGenerator) *Factory {
	return &Factory{clock: clock, ids: ids}
}

// Totals are the money fields of an order, rounded to cents.
type Totals struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// ComputeTotals prices items: tax is 8% of the subtotal and shipping is free.
func ComputeTotals(items []domain.CartLineItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(TaxRate).Round(2)
	total := subtotal.Add(tax).Add(ShippingCost)

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Shipping: ShippingCost.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// Create snapshots items into a new pending order.
func (f *Factory) Create(items []domain.CartLineItem, customer domain.Customer, shipping domain.ShippingAddress) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	now := f.clock.Now()
	totals := ComputeTotals(items)
	return domain.Order{
		ID:                f.ids.NewID(now),
		CreatedAt:         now,
		Status:            domain.OrderStatusPending,
		LineItemsSnapshot: domain.CloneItems(items),
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Shipping:          totals.Shipping,
		Total:             totals.Total,
		Customer:          customer,
		ShippingAddress:   shipping,
	}, nil
}
