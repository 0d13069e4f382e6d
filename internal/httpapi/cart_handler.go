package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dinehall/ordering/internal/cart"
	"github.com/dinehall/ordering/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartService is the slice of the cart aggregator the handlers need.
type CartService interface {
	Get(ctx context.Context, customerID int64) (*domain.Cart, error)
	AddLine(ctx context.Context, customerID int64, item domain.MenuItemRef, quantity int, notes string) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, customerID int64, itemID int64, delta int) (*domain.Cart, error)
	RemoveLine(ctx context.Context, customerID int64, itemID int64) (*domain.Cart, error)
	Clear(ctx context.Context, customerID int64) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddLineRequestDTO struct {
	MenuItemID int64   `json:"menu_item_id"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	ImageURL   string  `json:"image_url"`
	Quantity   int     `json:"quantity"`
	Notes      string  `json:"notes"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

// CartResponseDTO carries the cart with its derived values. Total and count
// are recomputed per response, never stored.
type CartResponseDTO struct {
	Lines []domain.CartLine `json:"lines"`
	Total float64           `json:"total"`
	Count int               `json:"count"`
}

func cartResponse(c *domain.Cart) CartResponseDTO {
	lines := c.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return CartResponseDTO{
		Lines: lines,
		Total: c.Total(),
		Count: c.Count(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	c, err := h.carts.Get(ctx, customerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	var req AddLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.MenuItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu_item_id must be positive")
		return
	}
	if req.UnitPrice <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_unit_price", "unit_price must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	item := domain.MenuItemRef{
		ID:        req.MenuItemID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		ImageURL:  req.ImageURL,
	}
	c, err := h.carts.AddLine(ctx, customerID, item, req.Quantity, req.Notes)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add line")
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(c))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	itemID, err := parseItemID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must be non-zero")
		return
	}

	c, err := h.carts.UpdateQuantity(ctx, customerID, itemID, req.Delta)
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not in cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	itemID, err := parseItemID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return
	}

	c, err := h.carts.RemoveLine(ctx, customerID, itemID)
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "item not in cart")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove line")
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(c))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerIDFromContext(r.Context())
	if customerID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer authentication")
		return
	}

	if err := h.carts.Clear(ctx, customerID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseItemID(r *http.Request) (int64, error) {
	itemIDStr := chi.URLParam(r, "item_id")
	itemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil || itemID <= 0 {
		return 0, errors.New("invalid item id")
	}
	return itemID, nil
}
