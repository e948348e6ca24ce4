package orders

import "time"

// Order statuses. REFUNDED is terminal and reachable from any other state,
// all other transitions are one-directional.
const (
	StatusPending   = "PENDING"
	StatusAssigned  = "ASSIGNED"
	StatusCompleted = "COMPLETED"
	StatusRefunded  = "REFUNDED"
)

// Order is a placed customer order. Monetary fields are minor units.
type Order struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	Status          string     `json:"status"`
	Subtotal        int64      `json:"subtotal"`
	Discount        int64      `json:"discount"`
	Total           int64      `json:"total"`
	DeliveryAddress string     `json:"delivery_address"`
	FreeDelivery    bool       `json:"free_delivery"`
	DeliveryID      *string    `json:"delivery_id,omitempty"`
	RefundReason    *string    `json:"refund_reason,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
	OrderDate       time.Time  `json:"order_date"`
}

// OrderItem captures a cart line with price and chef attribution frozen at
// order time; later dish edits never alter historical orders.
type OrderItem struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	DishID   string `json:"dish_id"`
	ChefID   string `json:"chef_id"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// CartItem is a requested line in a placement call.
type CartItem struct {
	DishID   string `json:"dish_id"`
	Quantity int    `json:"quantity"`
}
