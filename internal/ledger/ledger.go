package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/RammasunW/tablefare/internal/apperr"
)

// CreditTx adds amount to the user's wallet inside the caller's transaction.
// The wallet row is locked for the duration of the read-modify-write, and the
// recorded balance_after is the balance produced under that lock.
func CreditTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, kind, description string) (int64, error) {
	return apply(ctx, tx, userID, amount, kind, description)
}

// DebitTx removes amount from the user's wallet inside the caller's
// transaction. Fails with ErrInsufficientFunds when the locked balance cannot
// cover the amount; the ledger entry is stored with a negative amount.
func DebitTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, kind, description string) (int64, error) {
	return apply(ctx, tx, userID, -amount, kind, description)
}

func apply(ctx context.Context, tx pgx.Tx, userID string, delta int64, kind, description string) (int64, error) {
	var walletID string
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT id::text, balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&walletID, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.ErrWalletNotFound
		}
		return 0, apperr.Storage(err)
	}

	newBalance := balance + delta
	if newBalance < 0 {
		return 0, apperr.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = $1, last_updated = NOW() WHERE id = $2`,
		newBalance, walletID,
	); err != nil {
		return 0, apperr.Storage(err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, wallet_id, type, amount, description, timestamp, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), walletID, kind, delta, description, time.Now().UTC(), newBalance,
	); err != nil {
		return 0, apperr.Storage(err)
	}

	return newBalance, nil
}

// ZeroTx drains the wallet to zero with a WITHDRAWAL entry and returns the
// drained amount. A zero or missing balance drains nothing.
func ZeroTx(ctx context.Context, tx pgx.Tx, userID, description string) (int64, error) {
	var walletID string
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT id::text, balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&walletID, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, apperr.Storage(err)
	}
	if balance <= 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = 0, last_updated = NOW() WHERE id = $1`, walletID,
	); err != nil {
		return 0, apperr.Storage(err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, wallet_id, type, amount, description, timestamp, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, 0)`,
		uuid.New().String(), walletID, KindWithdrawal, -balance, description, time.Now().UTC(),
	); err != nil {
		return 0, apperr.Storage(err)
	}
	return balance, nil
}

// OrderDescription is the ledger entry text for an order debit.
func OrderDescription(orderID string) string {
	return fmt.Sprintf("Order #%s", orderID)
}

// RefundDescription is the ledger entry text for an order refund.
func RefundDescription(orderID, reason string) string {
	return fmt.Sprintf("Refund for Order #%s: %s", orderID, reason)
}
