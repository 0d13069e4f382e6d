package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dinehall/ordering/internal/domain"
)

// APIError is a non-2xx reply from the restaurant backend.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// Client talks to the restaurant backend REST API. The backend owns all
// order, menu and table state; the gateway only reads and mutates it over
// this contract.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}, nil
}

type CreateOrderRequest struct {
	CustomerID int64  `json:"customer_id"`
	TableID    int64  `json:"table_id"`
	StaffID    *int64 `json:"staff_id"`
	Notes      string `json:"notes"`
}

type UpdateOrderRequest struct {
	Status *domain.OrderStatus `json:"status,omitempty"`
	Notes  *string             `json:"notes,omitempty"`
}

type CreateOrderItemRequest struct {
	OrderID    int64  `json:"order_id"`
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

func (c *Client) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	if err := c.do(ctx, http.MethodGet, "/menu-items/", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListTables(ctx context.Context) ([]domain.Table, error) {
	var tables []domain.Table
	if err := c.do(ctx, http.MethodGet, "/tables/", nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// ListOrders fetches all orders. The backend does not guarantee a customer
// filter server-side; callers filter the result themselves.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders/", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, req UpdateOrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CreateOrderItem(ctx context.Context, req CreateOrderItemRequest) (*domain.OrderItem, error) {
	var item domain.OrderItem
	if err := c.do(ctx, http.MethodPost, "/order-items/", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/order-items/order/%d", orderID), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Detail: resp.Status}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
	}
	return apiErr
}
