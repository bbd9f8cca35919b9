package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderFinder interface {
	FindByID(id string) (domain.Order, error)
	Search(term string) []domain.Order
}

type OrdersHandler struct {
	orders OrderFinder
}

func NewOrdersHandler(orders OrderFinder) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type OrderItemDTO struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	Category    string  `json:"category,omitempty"`
}

type CustomerDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ShippingAddressDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type OrderResponseDTO struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	Items           []OrderItemDTO     `json:"items"`
	ItemCount       int                `json:"item_count"`
	Subtotal        float64            `json:"subtotal"`
	Tax             float64            `json:"tax"`
	Shipping        float64            `json:"shipping"`
	Total           float64            `json:"total"`
	Customer        CustomerDTO        `json:"customer"`
	ShippingAddress ShippingAddressDTO `json:"shipping_address"`
	CreatedAt       string             `json:"created_at"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.Search(r.URL.Query().Get("q"))

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	o, err := h.orders.FindByID(orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(o))
}

func convertOrder(o domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.LineItemsSnapshot))
	for _, item := range o.LineItemsSnapshot {
		items = append(items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.Title,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice,
			Image:       item.Image,
			Category:    item.Category,
		})
	}

	return OrderResponseDTO{
		ID:        o.ID,
		Status:    o.Status.String(),
		Items:     items,
		ItemCount: o.ItemCount(),
		Subtotal:  o.Subtotal,
		Tax:       o.Tax,
		Shipping:  o.Shipping,
		Total:     o.Total,
		Customer: CustomerDTO{
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
			Phone: o.Customer.Phone,
		},
		ShippingAddress: ShippingAddressDTO{
			Address: o.ShippingAddress.Address,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			ZipCode: o.ShippingAddress.ZipCode,
			Country: o.ShippingAddress.Country,
		},
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
