package reputation

import "time"

type Complaint struct {
	ID          string     `json:"id"`
	FromUserID  string     `json:"from_user_id"`
	ToUserID    string     `json:"to_user_id"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	OrderID     *string    `json:"order_id,omitempty"`
	Status      string     `json:"status"`
	Weight      int        `json:"weight"`
	ManagerID   *string    `json:"manager_id,omitempty"`
	ManagerNote *string    `json:"manager_note,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Compliment struct {
	ID                    string    `json:"id"`
	FromUserID            string    `json:"from_user_id"`
	ToUserID              string    `json:"to_user_id"`
	Category              string    `json:"category"`
	Description           string    `json:"description"`
	Weight                int       `json:"weight"`
	CancelledComplaintID  *string   `json:"cancelled_complaint_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}
