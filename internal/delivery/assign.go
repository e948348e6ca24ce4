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

// Assign picks one bid for a pending order: the delivery record is created,
// the order moves to ASSIGNED, the chosen bid is accepted and every other bid
// rejected, all in one transaction. Choosing a bid above the lowest requires
// a justification memo of at least 10 characters.
func Assign(ctx context.Context, managerID, orderID, agentID, memo string) (string, error) {
	var role string
	err := db.Conn.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, managerID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.ErrUnauthorized
		}
		return "", apperr.Storage(err)
	}
	if role != "manager" {
		return "", apperr.ErrUnauthorized
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return "", apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	// Lock the order first and verify it is still open: a second assignment
	// must fail the status guard, not trip the deliveries unique constraint.
	var orderStatus string
	err = tx.QueryRow(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&orderStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFoundf("order %s", orderID)
		}
		return "", apperr.Storage(err)
	}
	if orderStatus != "PENDING" {
		return "", fmt.Errorf("%w: order is not pending", apperr.ErrInvalidState)
	}

	rows, err := tx.Query(ctx,
		`SELECT id::text, agent_id::text, amount FROM delivery_bids WHERE order_id = $1 FOR UPDATE`, orderID)
	if err != nil {
		return "", apperr.Storage(err)
	}
	var bids []Bid
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.AgentID, &b.Amount); err != nil {
			rows.Close()
			return "", apperr.Storage(err)
		}
		b.OrderID = orderID
		bids = append(bids, b)
	}
	rows.Close()

	if len(bids) == 0 {
		return "", apperr.ErrNoBidsAvailable
	}
	var chosen *Bid
	for i := range bids {
		if bids[i].AgentID == agentID {
			chosen = &bids[i]
			break
		}
	}
	if chosen == nil {
		return "", apperr.ErrAgentDidNotBid
	}

	if JustificationRequired(chosen.Amount, LowestAmount(bids), memo) {
		return "", apperr.ErrJustificationRequired
	}

	deliveryID := uuid.New().String()
	if _, err := tx.Exec(ctx,
		`INSERT INTO deliveries (id, order_id, agent_id, bid_amount, status, assigned_by, manager_memo)
		 VALUES ($1, $2, $3, $4, 'ASSIGNED', $5, $6)`,
		deliveryID, orderID, agentID, chosen.Amount, managerID, memo,
	); err != nil {
		return "", apperr.Storage(err)
	}

	// Compare-and-set on order status: a stale order must not be overwritten.
	res, err := tx.Exec(ctx,
		`UPDATE orders SET status = 'ASSIGNED', delivery_id = $1, updated_at = NOW()
		 WHERE id = $2 AND status = 'PENDING'`,
		deliveryID, orderID,
	)
	if err != nil {
		return "", apperr.Storage(err)
	}
	if res.RowsAffected() == 0 {
		return "", fmt.Errorf("%w: order is not pending", apperr.ErrInvalidState)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE delivery_bids SET status = CASE WHEN agent_id = $1 THEN 'ACCEPTED' ELSE 'REJECTED' END
		 WHERE order_id = $2`,
		agentID, orderID,
	); err != nil {
		return "", apperr.Storage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", apperr.Storage(err)
	}

	alerts.NotifyAgent(agentID, "Delivery assigned", fmt.Sprintf("You've been assigned Order #%s", orderID))
	for _, b := range bids {
		if b.AgentID != agentID {
			alerts.NotifyAgent(b.AgentID, "Bid not selected", fmt.Sprintf("Your bid for Order #%s was not selected", orderID))
		}
	}

	return deliveryID, nil
}

// AssignHandler handles POST /delivery/orders/:id/assign (managers only).
func AssignHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	var req struct {
		AgentID string `json:"agent_id"`
		Memo    string `json:"memo"`
	}
	if err := c.Bind(&req); err != nil || req.AgentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: agent_id required"})
	}

	deliveryID, err := Assign(c.Request().Context(), uid, orderID, req.AgentID, req.Memo)
	if err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"delivery_id": deliveryID})
}
