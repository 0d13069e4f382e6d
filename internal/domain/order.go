package domain

import "time"

// Order mirrors the backend's order resource.
type Order struct {
	ID          int64       `json:"id"`
	CustomerID  int64       `json:"customer_id"`
	TableID     int64       `json:"table_id"`
	StaffID     *int64      `json:"staff_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	Notes       string      `json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderItem mirrors the backend's order-item resource. SubTotal is computed
// server-side from the price at creation time.
type OrderItem struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	MenuItemID int64     `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	SubTotal   float64   `json:"subtotal"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

type MenuItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"item_name"`
	Type        string  `json:"item_type"`
	Price       float64 `json:"item_price"`
	Description string  `json:"item_description"`
	Image       string  `json:"item_image"`
	IsAvailable bool    `json:"is_available"`
}

type Table struct {
	ID       int64  `json:"id"`
	Number   int    `json:"table_number"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}
