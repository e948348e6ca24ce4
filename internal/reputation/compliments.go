package reputation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
	"github.com/RammasunW/tablefare/internal/hr"
)

// FileCompliment records praise for another party. A compliment cancels the
// recipient's single oldest PENDING complaint, keeping a back reference to
// it, and every third compliment of a category earns an employee a bonus.
func FileCompliment(ctx context.Context, filerID, recipientID, category, description string) (string, error) {
	if filerID == recipientID {
		return "", apperr.Validationf("cannot compliment yourself")
	}

	var filerRole, filerStatus string
	var filerVIP bool
	err := db.Conn.QueryRow(ctx,
		`SELECT role, status, is_vip FROM users WHERE id = $1`, filerID,
	).Scan(&filerRole, &filerStatus, &filerVIP)
	if err != nil {
		return "", apperr.Storage(err)
	}
	if filerStatus != "ACTIVE" {
		return "", apperr.ErrAccountSuspended
	}

	var recipientRole, recipientStatus string
	var recipientEmpType *string
	err = db.Conn.QueryRow(ctx,
		`SELECT role, status, emp_type FROM users WHERE id = $1`, recipientID,
	).Scan(&recipientRole, &recipientStatus, &recipientEmpType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFoundf("user %s", recipientID)
		}
		return "", apperr.Storage(err)
	}
	if recipientStatus != "ACTIVE" {
		return "", apperr.Validationf("user %s is no longer active", recipientID)
	}

	switch category {
	case CategoryChef, CategoryDelivery:
		if filerRole != "customer" {
			return "", apperr.ErrUnauthorized
		}
		wantType := "chef"
		if category == CategoryDelivery {
			wantType = "delivery"
		}
		if recipientRole != "employee" || recipientEmpType == nil || *recipientEmpType != wantType {
			return "", apperr.Validationf("user %s is not a %s", recipientID, strings.ToLower(category))
		}
	case CategoryCustomer:
		if filerRole != "employee" {
			return "", apperr.ErrUnauthorized
		}
		if recipientRole != "customer" {
			return "", apperr.Validationf("user %s is not a customer", recipientID)
		}
	default:
		return "", apperr.Validationf("unknown category %q", category)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return "", apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	// The single oldest pending complaint against the recipient is forgiven,
	// regardless of its category.
	var cancelledID *string
	var oldest string
	err = tx.QueryRow(ctx,
		`SELECT id::text FROM complaints
		 WHERE to_user_id = $1 AND status = 'PENDING'
		 ORDER BY created_at ASC LIMIT 1 FOR UPDATE`,
		recipientID,
	).Scan(&oldest)
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx,
			`UPDATE complaints SET status = 'CANCELLED', resolved_at = NOW() WHERE id = $1`, oldest,
		); err != nil {
			return "", apperr.Storage(err)
		}
		cancelledID = &oldest
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return "", apperr.Storage(err)
	}

	id := uuid.New().String()
	if _, err := tx.Exec(ctx,
		`INSERT INTO compliments (id, from_user_id, to_user_id, category, description, weight, cancelled_complaint_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, filerID, recipientID, category, description, Weight(filerVIP), cancelledID,
	); err != nil {
		return "", apperr.Storage(err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM compliments WHERE to_user_id = $1 AND category = $2`,
		recipientID, category,
	).Scan(&count); err != nil {
		return "", apperr.Storage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", apperr.Storage(err)
	}

	if recipientRole == "employee" && BonusDue(count) {
		if err := hr.AwardBonus(ctx, recipientID,
			fmt.Sprintf("Earned %d %s compliments", count, category)); err != nil {
			log.Printf("reputation: bonus for %s failed: %v", recipientID, err)
		}
	}

	alerts.NotifyUser(recipientID, "compliment", "You received a compliment",
		"Someone appreciated your service!")
	if cancelledID != nil {
		alerts.NotifyUser(recipientID, "compliment", "Complaint forgiven",
			fmt.Sprintf("Complaint #%s was cancelled by a compliment", *cancelledID))
	}
	return id, nil
}

// FileComplimentHandler handles POST /reputation/compliments.
func FileComplimentHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		ToUserID    string `json:"to_user_id"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || req.ToUserID == "" || req.Category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: to_user_id and category required"})
	}

	id, err := FileCompliment(c.Request().Context(), uid, req.ToUserID, req.Category, req.Description)
	if err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"compliment_id": id})
}
