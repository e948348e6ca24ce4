package reputation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
)

// Warnings are accumulation-only: the row keeps the reason for audit, standing
// logic reads only the counter on the user row. Every warning goes through
// here so the row and the counter can never diverge.

// AddWarningTx records a warning inside the caller's transaction and returns
// the user's new warning count.
func AddWarningTx(ctx context.Context, tx pgx.Tx, userID, reason string) (int, error) {
	if _, err := tx.Exec(ctx,
		`INSERT INTO warnings (id, user_id, reason) VALUES ($1, $2, $3)`,
		uuid.New().String(), userID, reason,
	); err != nil {
		return 0, apperr.Storage(err)
	}

	var count int
	err := tx.QueryRow(ctx,
		`UPDATE users SET warnings = warnings + 1 WHERE id = $1 RETURNING warnings`, userID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return count, nil
}

// AddWarning records a warning in its own transaction. Used for punitive
// warnings that must survive a failed primary operation.
func AddWarning(ctx context.Context, userID, reason string) (int, error) {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	count, err := AddWarningTx(ctx, tx, userID, reason)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.Storage(err)
	}
	return count, nil
}
