package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type CatalogMock struct {
	products   []domain.Product
	categories []string
	err        error
}

func (m CatalogMock) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

func (m CatalogMock) GetCategories(ctx context.Context) ([]string, error) {
	return m.categories, m.err
}

func (m CatalogMock) GetProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Product
	for _, p := range m.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m CatalogMock) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if m.err != nil {
		return domain.Product{}, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

type CheckoutMock struct {
	order      domain.Order
	err        error
	processing bool
	form       domain.CheckoutForm
}

func (m *CheckoutMock) PlaceOrder(ctx context.Context, form domain.CheckoutForm) (domain.Order, error) {
	m.form = form
	return m.order, m.err
}

func (m *CheckoutMock) Processing() bool { return m.processing }

// brokenStore has no data and rejects every write.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, storage.ErrNotFound }
func (brokenStore) Put(context.Context, ...storage.Entry) error { return errors.New("disk full") }
func (brokenStore) Close() error                                { return nil }

// --- helpers ---

var testProducts = []domain.Product{
	{ID: 1, Title: "Blue Shirt", Price: 10, Category: "men's clothing", Image: "https://img/1.jpg", Rating: domain.Rating{Rate: 4.5, Count: 10}},
	{ID: 2, Title: "Mug", Price: 5, Category: "kitchen"},
}

func newCart(t *testing.T, backend storage.Store) *cart.Store {
	t.Helper()
	p := storage.NewPersister(backend, zap.NewNop())
	return cart.NewStore(context.Background(), p, cart.DefaultKey, zap.NewNop())
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:        "ORD-1700000000000-deadbeef",
		CreatedAt: time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
		Status:    domain.OrderStatusPending,
		LineItemsSnapshot: []domain.CartLineItem{
			{ProductID: 1, Title: "Blue Shirt", UnitPrice: 10, Quantity: 2, Image: "shirt.png", Category: "men's clothing"},
			{ProductID: 2, Title: "Mug", UnitPrice: 5, Quantity: 1},
		},
		Subtotal:        25,
		Tax:             2,
		Total:           27,
		Customer:        domain.Customer{Name: "Jane Doe", Email: "jane@example.com"},
		ShippingAddress: domain.ShippingAddress{Address: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: domain.DefaultCountry},
	}
}

// --- Cart tests ---

func TestGetCart_Empty(t *testing.T) {
	handler := NewCartHandler(newCart(t, storage.NewMemoryStore()), CatalogMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.GetCart(recorder, httptest.NewRequest("GET", "/api/v1/cart", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	// items must be a JSON array, not null
	assert.Contains(t, recorder.Body.String(), `"items":[]`)
}

func TestAddItem_Success(t *testing.T) {
	handler := NewCartHandler(newCart(t, storage.NewMemoryStore()), CatalogMock{products: testProducts}, 5*time.Second)

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		handler.AddItem(recorder, httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":1}`)))
		require.Equal(t, http.StatusCreated, recorder.Code)
	}

	recorder := httptest.NewRecorder()
	handler.AddItem(recorder, httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":2}`)))
	require.Equal(t, http.StatusCreated, recorder.Code)

	resp := decode[CartResponseDTO](t, recorder)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Blue Shirt", resp.Items[0].Title)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, 20.0, resp.Items[0].LineTotal)
	assert.Equal(t, 25.0, resp.Total)
	assert.Equal(t, 3, resp.ItemCount)
	assert.Empty(t, recorder.Header().Get(DegradedHeader))
}

func TestAddItem_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"invalid json", `{bad`, "invalid_request"},
		{"zero product id", `{"product_id":0}`, "invalid_product_id"},
		{"negative product id", `{"product_id":-4}`, "invalid_product_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCartHandler(newCart(t, storage.NewMemoryStore()), CatalogMock{products: testProducts}, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.AddItem(recorder, httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, tt.expected, decode[ErrorResponse](t, recorder).Code)
		})
	}
}

func TestAddItem_CatalogErrors(t *testing.T) {
	tests := []struct {
		name           string
		catalog        CatalogMock
		expectedStatus int
		expectedCode   string
	}{
		{"unknown product", CatalogMock{products: testProducts}, http.StatusNotFound, "product_not_found"},
		{"catalog down", CatalogMock{err: catalog.ErrUnavailable}, http.StatusServiceUnavailable, "unavailable"},
		{"timeout", CatalogMock{err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"unexpected", CatalogMock{err: errors.New("boom")}, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCart(t, storage.NewMemoryStore())
			handler := NewCartHandler(store, tt.catalog, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.AddItem(recorder, httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":42}`)))

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Equal(t, tt.expectedCode, decode[ErrorResponse](t, recorder).Code)
			assert.Empty(t, store.Items())
		})
	}
}

func TestAddItem_DegradedStorageStillSucceeds(t *testing.T) {
	handler := NewCartHandler(newCart(t, brokenStore{}), CatalogMock{products: testProducts}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.AddItem(recorder, httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"product_id":1}`)))

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "true", recorder.Header().Get(DegradedHeader))
	assert.Len(t, decode[CartResponseDTO](t, recorder).Items, 1)
}

func TestUpdateQuantity(t *testing.T) {
	tests := []struct {
		name           string
		productID      string
		body           string
		expectedStatus int
		expectedQty    int
		expectedLines  int
	}{
		{"set quantity", "1", `{"quantity":3}`, http.StatusOK, 3, 2},
		{"zero removes the line", "1", `{"quantity":0}`, http.StatusOK, 0, 1},
		{"unknown product is a no-op", "7", `{"quantity":3}`, http.StatusOK, 1, 2},
		{"negative quantity", "1", `{"quantity":-1}`, http.StatusBadRequest, 1, 2},
		{"quantity too large", "1", `{"quantity":100}`, http.StatusBadRequest, 1, 2},
		{"missing quantity", "1", `{}`, http.StatusBadRequest, 1, 2},
		{"invalid json", "1", `nope`, http.StatusBadRequest, 1, 2},
		{"non numeric id", "abc", `{"quantity":3}`, http.StatusBadRequest, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCart(t, storage.NewMemoryStore())
			store.AddItem(context.Background(), testProducts[0])
			store.AddItem(context.Background(), testProducts[1])
			handler := NewCartHandler(store, CatalogMock{products: testProducts}, 5*time.Second)
			recorder := httptest.NewRecorder()
			request := withURLParam(httptest.NewRequest("PUT", "/api/v1/cart/items/"+tt.productID, strings.NewReader(tt.body)), "product_id", tt.productID)

			handler.UpdateQuantity(recorder, request)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Len(t, store.Items(), tt.expectedLines)
			qty := 0
			for _, item := range store.Items() {
				if item.ProductID == 1 {
					qty = item.Quantity
				}
			}
			assert.Equal(t, tt.expectedQty, qty)
		})
	}
}

func TestRemoveItem(t *testing.T) {
	store := newCart(t, storage.NewMemoryStore())
	store.AddItem(context.Background(), testProducts[0])
	store.AddItem(context.Background(), testProducts[1])
	handler := NewCartHandler(store, CatalogMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.RemoveItem(recorder, withURLParam(httptest.NewRequest("DELETE", "/api/v1/cart/items/1", nil), "product_id", "1"))

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[CartResponseDTO](t, recorder)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2), resp.Items[0].ProductID)
	assert.Equal(t, 5.0, resp.Total)
}

func TestRemoveItem_InvalidProductID(t *testing.T) {
	handler := NewCartHandler(newCart(t, storage.NewMemoryStore()), CatalogMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.RemoveItem(recorder, withURLParam(httptest.NewRequest("DELETE", "/api/v1/cart/items/0", nil), "product_id", "0"))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_product_id", decode[ErrorResponse](t, recorder).Code)
}

func TestClearCart(t *testing.T) {
	store := newCart(t, storage.NewMemoryStore())
	store.AddItem(context.Background(), testProducts[0])
	handler := NewCartHandler(store, CatalogMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ClearCart(recorder, httptest.NewRequest("DELETE", "/api/v1/cart", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[CartResponseDTO](t, recorder)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
	assert.Zero(t, resp.ItemCount)
	assert.Empty(t, store.Items())
}

// --- Product tests ---

func TestGetProducts_Success(t *testing.T) {
	handler := NewProductHandler(CatalogMock{products: testProducts}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/products", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[ProductsResponse](t, recorder)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, ProductResponse{
		ID:          1,
		Title:       "Blue Shirt",
		Price:       10,
		Category:    "men's clothing",
		ImageURL:    "https://img/1.jpg",
		Rating:      4.5,
		RatingCount: 10,
	}, resp.Products[0])
}

func TestGetProducts_EmptyList(t *testing.T) {
	handler := NewProductHandler(CatalogMock{}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/products", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"products":[]`)
}

func TestGetProducts_CatalogUnavailable(t *testing.T) {
	handler := NewProductHandler(CatalogMock{err: catalog.ErrUnavailable}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/products", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestCategories(t *testing.T) {
	handler := NewProductHandler(CatalogMock{categories: []string{"electronics", "jewelery"}}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Categories(recorder, httptest.NewRequest("GET", "/api/v1/products/categories", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"electronics", "jewelery"}, decode[CategoriesResponse](t, recorder).Categories)
}

func TestByCategory(t *testing.T) {
	handler := NewProductHandler(CatalogMock{products: testProducts}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.ByCategory(recorder, withURLParam(httptest.NewRequest("GET", "/api/v1/products/category/kitchen", nil), "category", "kitchen"))
	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[ProductsResponse](t, recorder)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Mug", resp.Products[0].Title)

	recorder = httptest.NewRecorder()
	handler.ByCategory(recorder, withURLParam(httptest.NewRequest("GET", "/api/v1/products/category/", nil), "category", ""))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// --- Orders tests ---

func newOrders(t *testing.T, orders ...domain.Order) *order.Repository {
	t.Helper()
	p := storage.NewPersister(storage.NewMemoryStore(), zap.NewNop())
	repo := order.NewRepository(context.Background(), p, order.DefaultKey, zap.NewNop())
	for _, o := range orders {
		repo.Append(context.Background(), o)
	}
	return repo
}

func TestListOrders(t *testing.T) {
	second := sampleOrder()
	second.ID = "ORD-1700000000001-cafebabe"
	second.LineItemsSnapshot = []domain.CartLineItem{{ProductID: 3, Title: "Gold Ring", UnitPrice: 100, Quantity: 1}}
	handler := NewOrdersHandler(newOrders(t, sampleOrder(), second))

	tests := []struct {
		name     string
		target   string
		expected []string
	}{
		{"all orders", "/api/v1/orders", []string{sampleOrder().ID, second.ID}},
		{"search by title", "/api/v1/orders?q=shirt", []string{sampleOrder().ID}},
		{"search by id", "/api/v1/orders?q=cafebabe", []string{second.ID}},
		{"no match", "/api/v1/orders?q=laptop", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			handler.ListOrders(recorder, httptest.NewRequest("GET", tt.target, nil))

			require.Equal(t, http.StatusOK, recorder.Code)
			resp := decode[[]OrderResponseDTO](t, recorder)
			ids := make([]string, 0, len(resp))
			for _, o := range resp {
				ids = append(ids, o.ID)
			}
			assert.ElementsMatch(t, tt.expected, ids)
		})
	}
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	handler := NewOrdersHandler(newOrders(t))
	recorder := httptest.NewRecorder()

	handler.ListOrders(recorder, httptest.NewRequest("GET", "/api/v1/orders", nil))

	assert.Equal(t, "[]", strings.TrimSpace(recorder.Body.String()))
}

func TestGetOrder(t *testing.T) {
	handler := NewOrdersHandler(newOrders(t, sampleOrder()))
	recorder := httptest.NewRecorder()

	handler.GetOrder(recorder, withURLParam(httptest.NewRequest("GET", "/api/v1/orders/x", nil), "order_id", sampleOrder().ID))

	require.Equal(t, http.StatusOK, recorder.Code)
	resp := decode[OrderResponseDTO](t, recorder)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 3, resp.ItemCount)
	assert.Equal(t, 27.0, resp.Total)
	assert.Equal(t, "Jane Doe", resp.Customer.Name)
	assert.Equal(t, "62701", resp.ShippingAddress.ZipCode)
	assert.Equal(t, "2026-02-12T10:00:00Z", resp.CreatedAt)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Blue Shirt", resp.Items[0].ProductName)
	assert.Equal(t, "shirt.png", resp.Items[0].Image)
	assert.Equal(t, "men's clothing", resp.Items[0].Category)
	assert.NotContains(t, recorder.Body.String(), `"image":""`)
}

func TestGetOrder_Errors(t *testing.T) {
	handler := NewOrdersHandler(newOrders(t, sampleOrder()))

	recorder := httptest.NewRecorder()
	handler.GetOrder(recorder, withURLParam(httptest.NewRequest("GET", "/api/v1/orders/x", nil), "order_id", "ORD-missing"))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, recorder).Code)

	recorder = httptest.NewRecorder()
	handler.GetOrder(recorder, withURLParam(httptest.NewRequest("GET", "/api/v1/orders/", nil), "order_id", ""))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "missing_order_id", decode[ErrorResponse](t, recorder).Code)
}

// --- Checkout tests ---

const checkoutBody = `{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","address":"1 Main St",
"city":"Springfield","state":"IL","zipCode":"62701","cardNumber":"4242424242424242","expiryDate":"12/29","cvv":"123","cardName":"Jane Doe"}`

func TestPlaceOrder_Success(t *testing.T) {
	mock := &CheckoutMock{order: sampleOrder()}
	handler := NewCheckoutHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(checkoutBody)))

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, sampleOrder().ID, decode[OrderResponseDTO](t, recorder).ID)
	assert.Equal(t, "62701", mock.form.ZipCode)
	assert.Equal(t, "123", mock.form.CVV)
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"validation", &checkout.ValidationError{Fields: checkout.ValidationErrors{"email": checkout.MsgInvalidMail}}, http.StatusUnprocessableEntity, "validation_failed"},
		{"empty cart", order.ErrEmptyCart, http.StatusConflict, "empty_cart"},
		{"in progress", checkout.ErrCheckoutInProgress, http.StatusConflict, "checkout_in_progress"},
		{"declined", &checkout.GatewayError{Reason: "card_declined"}, http.StatusPaymentRequired, "payment_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCheckoutHandler(&CheckoutMock{err: tt.err}, 5*time.Second)
			recorder := httptest.NewRecorder()

			handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(checkoutBody)))

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Equal(t, tt.expectedCode, decode[ErrorResponse](t, recorder).Code)
		})
	}
}

func TestPlaceOrder_ValidationFieldsInBody(t *testing.T) {
	err := &checkout.ValidationError{Fields: checkout.ValidationErrors{
		"email": checkout.MsgInvalidMail,
		"cvv":   checkout.MsgInvalidCVV,
	}}
	handler := NewCheckoutHandler(&CheckoutMock{err: err}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(checkoutBody)))

	resp := decode[ErrorResponse](t, recorder)
	assert.Equal(t, map[string]string{"email": checkout.MsgInvalidMail, "cvv": checkout.MsgInvalidCVV}, resp.Fields)
}

func TestPlaceOrder_GatewayReasonInDetails(t *testing.T) {
	handler := NewCheckoutHandler(&CheckoutMock{err: &checkout.GatewayError{Reason: "insufficient_funds"}}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(checkoutBody)))

	assert.Equal(t, "insufficient_funds", decode[ErrorResponse](t, recorder).Details)
}

func TestPlaceOrder_InvalidJSON(t *testing.T) {
	mock := &CheckoutMock{order: sampleOrder()}
	handler := NewCheckoutHandler(mock, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, mock.form.Email)
}

func TestCheckoutStatus(t *testing.T) {
	handler := NewCheckoutHandler(&CheckoutMock{processing: true}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, httptest.NewRequest("GET", "/api/v1/checkout/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, decode[CheckoutStatusDTO](t, recorder).Processing)
}
