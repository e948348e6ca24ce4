package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
)

// SubmitBid upserts one bid per (agent, order). The order must still be
// PENDING and the amount non-negative. A re-submission updates the amount in
// place and keeps the bid PENDING.
func SubmitBid(ctx context.Context, agentID, orderID string, amount int64) (string, error) {
	var empType *string
	err := db.Conn.QueryRow(ctx,
		`SELECT emp_type FROM users WHERE id = $1`, agentID,
	).Scan(&empType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFoundf("agent %s", agentID)
		}
		return "", apperr.Storage(err)
	}
	if empType == nil || *empType != "delivery" {
		return "", apperr.ErrUnauthorized
	}

	var status string
	err = db.Conn.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFoundf("order %s", orderID)
		}
		return "", apperr.Storage(err)
	}
	if status != "PENDING" {
		return "", fmt.Errorf("%w: order not available for bidding", apperr.ErrInvalidState)
	}

	if amount < 0 {
		return "", apperr.Validationf("bid amount must be non-negative")
	}

	// The EXISTS guard makes the status check atomic with the write: an
	// assignment committing between the read above and this statement leaves
	// no row behind instead of a stray PENDING bid on a closed order.
	var bidID string
	err = db.Conn.QueryRow(ctx,
		`INSERT INTO delivery_bids (id, order_id, agent_id, amount, status)
		 SELECT $1, $2, $3, $4, 'PENDING'
		 WHERE EXISTS (SELECT 1 FROM orders WHERE id = $2 AND status = 'PENDING')
		 ON CONFLICT (order_id, agent_id)
		 DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
		 RETURNING id::text`,
		uuid.New().String(), orderID, agentID, amount,
	).Scan(&bidID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: order not available for bidding", apperr.ErrInvalidState)
		}
		return "", apperr.Storage(err)
	}

	alerts.NotifyManagers("New delivery bid", fmt.Sprintf("New delivery bid for Order #%s", orderID))
	return bidID, nil
}

// SubmitBidHandler handles POST /delivery/orders/:id/bids
func SubmitBidHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	bidID, err := SubmitBid(c.Request().Context(), uid, orderID, req.Amount)
	if err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"bid_id": bidID})
}

// ListBidsHandler handles GET /delivery/orders/:id/bids (managers only).
func ListBidsHandler(c echo.Context) error {
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id::text, order_id::text, agent_id::text, amount, status, submitted_at, updated_at
		 FROM delivery_bids WHERE order_id = $1 ORDER BY amount ASC`, orderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch bids"})
	}
	defer rows.Close()

	var bids []Bid
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.OrderID, &b.AgentID, &b.Amount, &b.Status, &b.SubmittedAt, &b.UpdatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse bid"})
		}
		bids = append(bids, b)
	}
	return c.JSON(http.StatusOK, echo.Map{"bids": bids})
}
