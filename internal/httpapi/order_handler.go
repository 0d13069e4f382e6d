package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dinehall/ordering/internal/backend"
	"github.com/dinehall/ordering/internal/domain"
	"github.com/go-chi/chi/v5"
)

// BackendAPI is the slice of the restaurant backend the order and catalog
// handlers need.
type BackendAPI interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id int64, req backend.UpdateOrderRequest) (*domain.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	ListMenu(ctx context.Context) ([]domain.MenuItem, error)
	ListTables(ctx context.Context) ([]domain.Table, error)
}

type OrderHandler struct {
	api     BackendAPI
	timeout time.Duration
}

func NewOrderHandler(api BackendAPI, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		api:     api,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// ListMyOrders returns the customer's orders, newest first. The backend does
// not filter by customer, so the filter happens here.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	orders, err := h.api.ListOrders(ctx)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	mine := make([]domain.Order, 0)
	for _, o := range orders {
		if o.CustomerID == customerID {
			mine = append(mine, o)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})

	respondJSON(w, http.StatusOK, mine)
}

func (h *OrderHandler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return
	}

	items, err := h.api.ListOrderItems(ctx, orderID)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// UpdateStatus validates the requested transition against the shared status
// table before forwarding it, so every screen gets the same answer about what
// an order may do next.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := parseOrderID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.api.GetOrder(ctx, orderID)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	if !domain.CanTransition(order.Status, req.Status) {
		respondError(w, http.StatusConflict, "illegal_transition",
			"cannot move order from "+order.Status.String()+" to "+req.Status.String())
		return
	}

	updated, err := h.api.UpdateOrder(ctx, orderID, backend.UpdateOrderRequest{Status: &req.Status})
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.api.ListMenu(ctx)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *OrderHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tables, err := h.api.ListTables(ctx)
	if err != nil {
		handleBackendError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tables)
}

func parseOrderID(r *http.Request) (int64, error) {
	orderIDStr := chi.URLParam(r, "order_id")
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil || orderID <= 0 {
		return 0, errors.New("invalid order id")
	}
	return orderID, nil
}
