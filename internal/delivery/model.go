package delivery

import "time"

// Bid statuses.
const (
	BidPending  = "PENDING"
	BidAccepted = "ACCEPTED"
	BidRejected = "REJECTED"
)

// Delivery statuses. UNASSIGNED is only set when an agent is terminated with
// work in flight and the order must be re-queued for bidding.
const (
	StatusAssigned   = "ASSIGNED"
	StatusOnRoute    = "ON_ROUTE"
	StatusDelivered  = "DELIVERED"
	StatusUnassigned = "UNASSIGNED"
)

// Bid is one agent's offer to deliver an order. One row per (order, agent);
// re-submission updates the amount in place.
type Bid struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	AgentID     string     `json:"agent_id"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Delivery is the 1:1 fulfillment record created at assignment.
type Delivery struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	AgentID     string     `json:"agent_id"`
	BidAmount   int64      `json:"bid_amount"`
	Status      string     `json:"status"`
	AssignedBy  string     `json:"assigned_by"`
	ManagerMemo string     `json:"manager_memo,omitempty"`
	AssignedAt  time.Time  `json:"assigned_at"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
