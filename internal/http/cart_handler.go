package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/go-chi/chi/v5"
)

const maxQuantity = 99

type CartStore interface {
	AddItem(ctx context.Context, product domain.Product) storage.Result
	UpdateQuantity(ctx context.Context, productID int64, quantity int) storage.Result
	RemoveItem(ctx context.Context, productID int64) storage.Result
	Clear(ctx context.Context) storage.Result
	Snapshot() cart.Snapshot
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

type CartHandler struct {
	cart     CartStore
	products ProductLookup
	timeout  time.Duration
}

func NewCartHandler(cart CartStore, products ProductLookup, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:     cart,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartItemDTO struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
	Image     string  `json:"image,omitempty"`
	Category  string  `json:"category,omitempty"`
}

type CartResponseDTO struct {
	Items     []CartItemDTO `json:"items"`
	Total     float64       `json:"total"`
	ItemCount int           `json:"item_count"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Snapshot()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	markDegraded(w, h.cart.AddItem(ctx, product))
	respondJSON(w, http.StatusCreated, convertSnapshot(h.cart.Snapshot()))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 || *req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	markDegraded(w, h.cart.UpdateQuantity(ctx, productID, *req.Quantity))
	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Snapshot()))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	markDegraded(w, h.cart.RemoveItem(ctx, productID))
	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Snapshot()))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	markDegraded(w, h.cart.Clear(ctx))
	respondJSON(w, http.StatusOK, convertSnapshot(h.cart.Snapshot()))
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

func convertSnapshot(s cart.Snapshot) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, CartItemDTO{
			ProductID: it.ProductID,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
			Image:     it.Image,
			Category:  it.Category,
		})
	}
	return CartResponseDTO{
		Items:     items,
		Total:     s.Total,
		ItemCount: s.ItemCount,
	}
}
