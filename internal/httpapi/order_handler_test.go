package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dinehall/ordering/internal/backend"
	"github.com/dinehall/ordering/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendMock struct {
	orders  []domain.Order
	items   []domain.OrderItem
	menu    []domain.MenuItem
	tables  []domain.Table
	err     error
	updated *backend.UpdateOrderRequest
}

func (m *backendMock) ListOrders(context.Context) ([]domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func (m *backendMock) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.orders {
		if m.orders[i].ID == id {
			return &m.orders[i], nil
		}
	}
	return nil, &backend.APIError{Status: http.StatusNotFound, Detail: "order not found"}
}

func (m *backendMock) UpdateOrder(_ context.Context, id int64, req backend.UpdateOrderRequest) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updated = &req
	order, err := m.GetOrder(context.Background(), id)
	if err != nil {
		return nil, err
	}
	updated := *order
	if req.Status != nil {
		updated.Status = *req.Status
	}
	return &updated, nil
}

func (m *backendMock) ListOrderItems(context.Context, int64) ([]domain.OrderItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

func (m *backendMock) ListMenu(context.Context) ([]domain.MenuItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.menu, nil
}

func (m *backendMock) ListTables(context.Context) ([]domain.Table, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tables, nil
}

func withOrderID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("order_id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListMyOrders_FiltersAndSortsNewestFirst(t *testing.T) {
	now := time.Now()
	mock := &backendMock{orders: []domain.Order{
		{ID: 1, CustomerID: 1, Status: domain.OrderStatusPaid, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, CustomerID: 2, Status: domain.OrderStatusPending, CreatedAt: now},
		{ID: 3, CustomerID: 1, Status: domain.OrderStatusPending, CreatedAt: now.Add(-time.Hour)},
	}}
	handler := NewOrderHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/", nil), 1)

	handler.ListMyOrders(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	var orders []domain.Order
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&orders))
	require.Len(t, orders, 2)
	assert.Equal(t, int64(3), orders[0].ID)
	assert.Equal(t, int64(1), orders[1].ID)
}

func TestListMyOrders_EmptyIsAnArray(t *testing.T) {
	handler := NewOrderHandler(&backendMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authed(httptest.NewRequest("GET", "/", nil), 1)

	handler.ListMyOrders(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, "[]", recorder.Body.String())
}

func TestUpdateStatus_AllowedTransition(t *testing.T) {
	mock := &backendMock{orders: []domain.Order{
		{ID: 1, CustomerID: 1, Status: domain.OrderStatusReady},
	}}
	handler := NewOrderHandler(mock, 5*time.Second)

	body, _ := json.Marshal(UpdateStatusRequestDTO{Status: domain.OrderStatusServed})
	recorder := httptest.NewRecorder()
	request := withOrderID(authed(httptest.NewRequest("PATCH", "/", bytes.NewReader(body)), 1), "1")

	handler.UpdateStatus(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, mock.updated)
	assert.Equal(t, domain.OrderStatusServed, *mock.updated.Status)
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	mock := &backendMock{orders: []domain.Order{
		{ID: 1, CustomerID: 1, Status: domain.OrderStatusPending},
	}}
	handler := NewOrderHandler(mock, 5*time.Second)

	body, _ := json.Marshal(UpdateStatusRequestDTO{Status: domain.OrderStatusPaid})
	recorder := httptest.NewRecorder()
	request := withOrderID(authed(httptest.NewRequest("PATCH", "/", bytes.NewReader(body)), 1), "1")

	handler.UpdateStatus(recorder, request)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Nil(t, mock.updated)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	handler := NewOrderHandler(&backendMock{}, 5*time.Second)

	body, _ := json.Marshal(UpdateStatusRequestDTO{Status: domain.OrderStatusServed})
	recorder := httptest.NewRecorder()
	request := withOrderID(authed(httptest.NewRequest("PATCH", "/", bytes.NewReader(body)), 1), "99")

	handler.UpdateStatus(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListMenu_Success(t *testing.T) {
	mock := &backendMock{menu: []domain.MenuItem{
		{ID: 1, Name: "Pad Thai", Price: 12.50, IsAvailable: true},
	}}
	handler := NewOrderHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.ListMenu(recorder, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var menu []domain.MenuItem
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&menu))
	require.Len(t, menu, 1)
	assert.Equal(t, "Pad Thai", menu[0].Name)
}

func TestListTables_BackendDown(t *testing.T) {
	handler := NewOrderHandler(&backendMock{err: context.DeadlineExceeded}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.ListTables(recorder, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}
