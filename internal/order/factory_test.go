package order

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type sequenceIDs struct{ n int }

func (s *sequenceIDs) NewID(time.Time) string {
	s.n++
	return "ORD-TEST-" + strconv.Itoa(s.n)
}

var (
	customer = domain.Customer{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-0100"}
	address  = domain.ShippingAddress{Address: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "United States"}
)

func TestCreate_ComputesTotals(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f := NewFactory(fixedClock{created}, &sequenceIDs{})
	items := []domain.CartLineItem{
		{ProductID: 1, Title: "Blue Shirt", UnitPrice: 10, Quantity: 2},
		{ProductID: 2, Title: "Mug", UnitPrice: 5, Quantity: 1},
	}

	o, err := f.Create(items, customer, address)
	require.NoError(t, err)

	assert.Equal(t, "ORD-TEST-1", o.ID)
	assert.Equal(t, created, o.CreatedAt)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, 25.00, o.Subtotal)
	assert.Equal(t, 2.00, o.Tax)
	assert.Equal(t, 0.0, o.Shipping)
	assert.Equal(t, 27.00, o.Total)
	assert.Equal(t, customer, o.Customer)
	assert.Equal(t, address, o.ShippingAddress)
	assert.Equal(t, items, o.LineItemsSnapshot)
}

func TestCreate_EmptyCart(t *testing.T) {
	f := NewFactory(SystemClock{}, RandomIDs{})

	_, err := f.Create(nil, customer, address)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreate_SnapshotIsACopy(t *testing.T) {
	f := NewFactory(SystemClock{}, RandomIDs{})
	items := []domain.CartLineItem{{ProductID: 1, Title: "Blue Shirt", UnitPrice: 10, Quantity: 1}}

	o, err := f.Create(items, customer, address)
	require.NoError(t, err)

	items[0].UnitPrice = 99
	items[0].Title = "Renamed"
	assert.Equal(t, 10.0, o.LineItemsSnapshot[0].UnitPrice)
	assert.Equal(t, "Blue Shirt", o.LineItemsSnapshot[0].Title)
}

func TestComputeTotals_RoundsToCents(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.CartLineItem
		want  Totals
	}{
		{
			name:  "fractional tax",
			items: []domain.CartLineItem{{UnitPrice: 109.95, Quantity: 1}},
			want:  Totals{Subtotal: 109.95, Tax: 8.80, Shipping: 0, Total: 118.75},
		},
		{
			name:  "float noise",
			items: []domain.CartLineItem{{UnitPrice: 0.1, Quantity: 3}},
			want:  Totals{Subtotal: 0.30, Tax: 0.02, Shipping: 0, Total: 0.32},
		},
		{
			name:  "many lines",
			items: []domain.CartLineItem{{UnitPrice: 22.3, Quantity: 2}, {UnitPrice: 55.99, Quantity: 3}},
			want:  Totals{Subtotal: 212.57, Tax: 17.01, Shipping: 0, Total: 229.58},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTotals(tt.items))
		})
	}
}

func TestRandomIDs_Format(t *testing.T) {
	now := time.UnixMilli(1714557600000)
	ids := RandomIDs{}

	a := ids.NewID(now)
	b := ids.NewID(now)

	assert.Regexp(t, regexp.MustCompile(`^ORD-1714557600000-[0-9a-f]{8}$`), a)
	assert.NotEqual(t, a, b)
}
