package ledger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
)

// Deposit credits the user's wallet and records a DEPOSIT transaction.
func Deposit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperr.Validationf("deposit amount must be positive")
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	balance, err := CreditTx(ctx, tx, userID, amount, KindDeposit, "Deposit to wallet")
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.Storage(err)
	}

	alerts.NotifyUser(userID, "wallet", "Deposit successful",
		fmt.Sprintf("Deposit successful. New balance: $%.2f", float64(balance)/100))
	return balance, nil
}

// DepositHandler handles POST /wallet/deposit
func DepositHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	balance, err := Deposit(c.Request().Context(), uid, req.Amount)
	if err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": balance, "message": "Deposit successful"})
}

// BalanceHandler returns the authenticated user's wallet balance.
func BalanceHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var balance int64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT balance FROM wallets WHERE user_id = $1`, uid).Scan(&balance)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uid,
		"balance": balance,
	})
}

// TransactionsHandler returns the authenticated user's ledger history,
// oldest first so the running balance reads top to bottom.
func TransactionsHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT t.id::text, t.wallet_id::text, t.type, t.amount, t.description, t.timestamp, t.balance_after
		 FROM transactions t
		 JOIN wallets w ON w.id = t.wallet_id
		 WHERE w.user_id = $1
		 ORDER BY t.timestamp ASC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Description, &t.Timestamp, &t.BalanceAfter); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan error"})
		}
		txs = append(txs, t)
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
