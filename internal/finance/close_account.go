package finance

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
	"github.com/RammasunW/tablefare/internal/ledger"
)

// Closure reasons. Anything other than VOLUNTARY requires a manager, and
// KICKED/BLACKLIST additionally block the identity from re-registering.
const (
	ReasonVoluntary = "VOLUNTARY"
	ReasonKicked    = "KICKED"
	ReasonBlacklist = "BLACKLIST"
)

// CloseAccount deactivates a user: drains any positive wallet balance with a
// WITHDRAWAL entry, refunds every still-open order through RefundOrderTx, and
// marks the user DEREGISTERED. Runs as one transaction, so a failure leaves
// the account untouched.
func CloseAccount(ctx context.Context, userID string, managerID *string, reason string) error {
	if reason != ReasonVoluntary {
		if managerID == nil {
			return apperr.ErrUnauthorized
		}
		var role string
		err := db.Conn.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, *managerID).Scan(&role)
		if err != nil || role != "manager" {
			return apperr.ErrUnauthorized
		}
	}

	var username, email string
	err := db.Conn.QueryRow(ctx,
		`SELECT username, email FROM users WHERE id = $1`, userID,
	).Scan(&username, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("user %s", userID)
		}
		return apperr.Storage(err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	refunded, err := ledger.ZeroTx(ctx, tx, userID, "Account closure refund")
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT id::text FROM orders WHERE customer_id = $1 AND status IN ('PENDING', 'ASSIGNED') FOR UPDATE`,
		userID)
	if err != nil {
		return apperr.Storage(err)
	}
	var openOrders []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return apperr.Storage(err)
		}
		openOrders = append(openOrders, id)
	}
	rows.Close()

	for _, orderID := range openOrders {
		if _, _, err := RefundOrderTx(ctx, tx, orderID, "Account closed"); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET status = 'DEREGISTERED', deregistered_at = NOW(), deregistered_by = $1, deregistration_reason = $2
		 WHERE id = $3`,
		managerID, reason, userID,
	); err != nil {
		return apperr.Storage(err)
	}

	if reason == ReasonKicked || reason == ReasonBlacklist {
		if _, err := tx.Exec(ctx,
			`INSERT INTO blacklist (id, username, email, reason, banned_by)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), username, email, reason, managerID,
		); err != nil {
			return apperr.Storage(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	if refunded > 0 {
		alerts.NotifyUser(userID, "account", "Account closed",
			fmt.Sprintf("Account closed. Refund of $%.2f processed.", float64(refunded)/100))
	} else {
		alerts.NotifyUser(userID, "account", "Account closed", "Your account has been closed.")
	}
	return nil
}

// CloseOwnAccountHandler handles POST /account/close (voluntary closure).
func CloseOwnAccountHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	if err := CloseAccount(c.Request().Context(), uid, nil, ReasonVoluntary); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Account closed"})
}

// CloseAccountHandler handles POST /manage/users/:id/close (managers only).
func CloseAccountHandler(c echo.Context) error {
	managerID, ok := c.Get("user_id").(string)
	if !ok || managerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id in URL"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}

	if err := CloseAccount(c.Request().Context(), userID, &managerID, req.Reason); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Account closed"})
}
