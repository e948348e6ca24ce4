package finance

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
	"github.com/RammasunW/tablefare/internal/ledger"
)

// RefundOrderTx reverses one order's financial effect inside the caller's
// transaction: credits the customer's wallet for the order total and flips the
// order to REFUNDED. Account closure invokes this once per open order, so the
// whole refund lives here and nowhere else.
func RefundOrderTx(ctx context.Context, tx pgx.Tx, orderID, reason string) (customerID string, amount int64, err error) {
	var status string
	err = tx.QueryRow(ctx,
		`SELECT customer_id::text, total, status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&customerID, &amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, apperr.NotFoundf("order %s", orderID)
		}
		return "", 0, apperr.Storage(err)
	}
	if status == "REFUNDED" {
		return "", 0, apperr.ErrAlreadyRefunded
	}

	if _, err := ledger.CreditTx(ctx, tx, customerID, amount, ledger.KindRefund, ledger.RefundDescription(orderID, reason)); err != nil {
		return "", 0, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = 'REFUNDED', refund_reason = $1, refunded_at = NOW(), updated_at = NOW()
		 WHERE id = $2`,
		reason, orderID,
	); err != nil {
		return "", 0, apperr.Storage(err)
	}

	return customerID, amount, nil
}

// ProcessRefund refunds a single order in its own transaction and notifies
// the customer after commit.
func ProcessRefund(ctx context.Context, orderID, reason string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	customerID, amount, err := RefundOrderTx(ctx, tx, orderID, reason)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	alerts.NotifyCustomer(customerID, "Refund processed",
		fmt.Sprintf("Refund processed: $%.2f for Order #%s", float64(amount)/100, orderID))
	return nil
}

// RefundHandler handles POST /orders/:id/refund (managers only).
func RefundHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}

	if err := ProcessRefund(c.Request().Context(), orderID, req.Reason); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Refund processed"})
}
