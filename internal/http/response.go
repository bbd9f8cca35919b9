package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"go.uber.org/zap"
)

// DegradedHeader is set on responses whose changes were kept in memory only.
const DegradedHeader = "X-Storage-Degraded"

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func markDegraded(w http.ResponseWriter, res storage.Result) {
	if res.Degraded() {
		w.Header().Set(DegradedHeader, "true")
	}
}

// handleServiceError maps domain errors onto HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	var gerr *checkout.GatewayError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "checkout form is invalid",
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
	case errors.As(err, &gerr):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error:   "payment failed",
			Code:    "payment_failed",
			Details: gerr.Reason,
		})
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, catalog.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "unavailable", "product catalog is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "deadline_exceeded", "request timed out")
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusRequestTimeout, "canceled", "request was canceled")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
