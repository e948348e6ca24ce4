package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
)

// UpdateStatus advances a delivery along ASSIGNED -> ON_ROUTE -> DELIVERED.
// ON_ROUTE stamps pickup time; DELIVERED stamps delivery time and flips the
// linked order to COMPLETED in the same transaction.
func UpdateStatus(ctx context.Context, deliveryID, newStatus string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	var orderID, current string
	err = tx.QueryRow(ctx,
		`SELECT order_id::text, status FROM deliveries WHERE id = $1 FOR UPDATE`, deliveryID,
	).Scan(&orderID, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("delivery %s", deliveryID)
		}
		return apperr.Storage(err)
	}

	if !CanTransition(current, newStatus) {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, current, newStatus)
	}

	switch newStatus {
	case StatusOnRoute:
		_, err = tx.Exec(ctx,
			`UPDATE deliveries SET status = 'ON_ROUTE', picked_up_at = NOW(), updated_at = NOW() WHERE id = $1`,
			deliveryID)
	case StatusDelivered:
		_, err = tx.Exec(ctx,
			`UPDATE deliveries SET status = 'DELIVERED', delivered_at = NOW(), updated_at = NOW() WHERE id = $1`,
			deliveryID)
	}
	if err != nil {
		return apperr.Storage(err)
	}

	if newStatus == StatusDelivered {
		res, err := tx.Exec(ctx,
			`UPDATE orders SET status = 'COMPLETED', updated_at = NOW() WHERE id = $1 AND status = 'ASSIGNED'`,
			orderID)
		if err != nil {
			return apperr.Storage(err)
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("%w: linked order is not assigned", apperr.ErrInvalidState)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	if newStatus == StatusDelivered {
		var customerID string
		if err := db.Conn.QueryRow(ctx,
			`SELECT customer_id::text FROM orders WHERE id = $1`, orderID).Scan(&customerID); err == nil {
			alerts.NotifyCustomer(customerID, "Order delivered", "Your order has been delivered!")
		}
	}
	return nil
}

// UpdateStatusHandler handles PATCH /delivery/:id/status (delivery agents).
func UpdateStatusHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	deliveryID := c.Param("id")
	if deliveryID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing delivery id in URL"})
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: status required"})
	}

	// Only the assigned agent may advance their own delivery.
	var agentID string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT agent_id::text FROM deliveries WHERE id = $1`, deliveryID).Scan(&agentID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "delivery not found"})
	}
	if agentID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your delivery"})
	}

	if err := UpdateStatus(c.Request().Context(), deliveryID, req.Status); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated"})
}
