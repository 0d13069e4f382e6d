package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dinehall/ordering/internal/checkout"
)

type CheckoutService interface {
	PlaceOrder(ctx context.Context, customerID, tableID int64) (*checkout.Result, error)
}

type CheckoutHandler struct {
	service CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(service CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

type CheckoutRequestDTO struct {
	TableID int64 `json:"table_id"`
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	// Table selection is optional; it is only required when no open order
	// exists, which the flow decides.
	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TableID < 0 {
		respondError(w, http.StatusBadRequest, "invalid_table_id", "table_id must be positive")
		return
	}

	result, err := h.service.PlaceOrder(ctx, customerID, req.TableID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
		case errors.Is(err, checkout.ErrTableRequired):
			respondError(w, http.StatusBadRequest, "table_required", "please select a table")
		default:
			handleBackendError(w, err)
		}
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
