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
	"github.com/RammasunW/tablefare/internal/finance"
	"github.com/RammasunW/tablefare/internal/hr"
)

// FileComplaint records a complaint from one party about another. Customers
// complain about chefs or delivery agents (category CHEF / DELIVERY),
// employees complain about customers (category CUSTOMER). A referenced order
// must actually involve the accused in the claimed role, and only one PENDING
// complaint per (filer, accused, order) is allowed at a time.
func FileComplaint(ctx context.Context, filerID, accusedID, category, description string, orderID *string) (string, error) {
	if filerID == accusedID {
		return "", apperr.Validationf("cannot file a complaint against yourself")
	}
	if len(strings.TrimSpace(description)) < minComplaintDescription {
		return "", apperr.Validationf("description must be at least %d characters", minComplaintDescription)
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

	var accusedRole, accusedStatus string
	var accusedEmpType *string
	err = db.Conn.QueryRow(ctx,
		`SELECT role, status, emp_type FROM users WHERE id = $1`, accusedID,
	).Scan(&accusedRole, &accusedStatus, &accusedEmpType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFoundf("user %s", accusedID)
		}
		return "", apperr.Storage(err)
	}
	if accusedStatus != "ACTIVE" {
		return "", apperr.Validationf("user %s is no longer active", accusedID)
	}

	// The category names the accused's role.
	switch category {
	case CategoryChef, CategoryDelivery:
		if filerRole != "customer" {
			return "", apperr.ErrUnauthorized
		}
		wantType := "chef"
		if category == CategoryDelivery {
			wantType = "delivery"
		}
		if accusedRole != "employee" || accusedEmpType == nil || *accusedEmpType != wantType {
			return "", apperr.Validationf("user %s is not a %s", accusedID, strings.ToLower(category))
		}
	case CategoryCustomer:
		if filerRole != "employee" {
			return "", apperr.ErrUnauthorized
		}
		if accusedRole != "customer" {
			return "", apperr.Validationf("user %s is not a customer", accusedID)
		}
	default:
		return "", apperr.Validationf("unknown category %q", category)
	}

	if orderID != nil {
		participated, err := orderParticipation(ctx, *orderID, accusedID, category)
		if err != nil {
			return "", err
		}
		if !participated {
			return "", apperr.ErrNoTransactionHistory
		}
	}

	var pending bool
	err = db.Conn.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM complaints
			WHERE from_user_id = $1 AND to_user_id = $2
			  AND order_id IS NOT DISTINCT FROM $3 AND status = 'PENDING'
		)`,
		filerID, accusedID, orderID,
	).Scan(&pending)
	if err != nil {
		return "", apperr.Storage(err)
	}
	if pending {
		return "", apperr.ErrDuplicateRequest
	}

	id := uuid.New().String()
	_, err = db.Conn.Exec(ctx,
		`INSERT INTO complaints (id, from_user_id, to_user_id, category, description, order_id, weight)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, filerID, accusedID, category, description, orderID, Weight(filerVIP),
	)
	if err != nil {
		return "", apperr.Storage(err)
	}

	alerts.NotifyManagers("New complaint filed",
		fmt.Sprintf("Complaint #%s (%s) awaits review", id, category))
	alerts.NotifyUser(accusedID, "complaint", "Complaint filed against you",
		"A complaint against you is under review.")
	return id, nil
}

// orderParticipation reports whether the accused actually served in the
// claimed role on the referenced order.
func orderParticipation(ctx context.Context, orderID, accusedID, category string) (bool, error) {
	var query string
	switch category {
	case CategoryChef:
		query = `SELECT EXISTS (
			SELECT 1 FROM order_items WHERE order_id = $1 AND chef_id = $2
		)`
	case CategoryDelivery:
		query = `SELECT EXISTS (
			SELECT 1 FROM orders o
			JOIN deliveries dl ON dl.id = o.delivery_id
			WHERE o.id = $1 AND dl.agent_id = $2
		)`
	case CategoryCustomer:
		query = `SELECT EXISTS (
			SELECT 1 FROM orders WHERE id = $1 AND customer_id = $2
		)`
	default:
		return false, apperr.Validationf("unknown category %q", category)
	}

	var exists bool
	if err := db.Conn.QueryRow(ctx, query, orderID, accusedID).Scan(&exists); err != nil {
		return false, apperr.Storage(err)
	}
	return exists, nil
}

// ResolveComplaint closes a PENDING complaint. UPHOLD warns the accused and
// may escalate: three upheld complaints of one category demote an employee,
// three warnings deregister a customer, and an upheld CUSTOMER complaint
// strips VIP status at two warnings. DISMISS warns the filer instead; a
// filer reaching three warnings is deregistered the same way.
func ResolveComplaint(ctx context.Context, managerID, complaintID, outcome, note string) error {
	if outcome != ComplaintUpheld && outcome != ComplaintDismissed {
		return apperr.Validationf("outcome must be UPHOLD or DISMISS")
	}

	var role string
	if err := db.Conn.QueryRow(ctx,
		`SELECT role FROM users WHERE id = $1`, managerID,
	).Scan(&role); err != nil || role != "manager" {
		return apperr.ErrUnauthorized
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	var c Complaint
	err = tx.QueryRow(ctx,
		`SELECT id::text, from_user_id::text, to_user_id::text, category, status
		 FROM complaints WHERE id = $1 FOR UPDATE`,
		complaintID,
	).Scan(&c.ID, &c.FromUserID, &c.ToUserID, &c.Category, &c.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("complaint %s", complaintID)
		}
		return apperr.Storage(err)
	}
	if c.Status != ComplaintPending {
		return fmt.Errorf("%w: complaint already resolved", apperr.ErrInvalidState)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE complaints SET status = $1, manager_id = $2, manager_note = $3, resolved_at = NOW()
		 WHERE id = $4`,
		outcome, managerID, note, complaintID,
	); err != nil {
		return apperr.Storage(err)
	}

	// The losing party takes the warning.
	warnedID := c.ToUserID
	warnReason := fmt.Sprintf("Complaint #%s upheld against you", complaintID)
	if outcome == ComplaintDismissed {
		warnedID = c.FromUserID
		warnReason = fmt.Sprintf("Complaint #%s dismissed as unfounded", complaintID)
	}
	warnings, err := AddWarningTx(ctx, tx, warnedID, warnReason)
	if err != nil {
		return err
	}

	var warnedRole string
	var warnedVIP bool
	if err := tx.QueryRow(ctx,
		`SELECT role, is_vip FROM users WHERE id = $1`, warnedID,
	).Scan(&warnedRole, &warnedVIP); err != nil {
		return apperr.Storage(err)
	}

	demote := false
	if outcome == ComplaintUpheld && (c.Category == CategoryChef || c.Category == CategoryDelivery) {
		var upheld int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM complaints WHERE to_user_id = $1 AND category = $2 AND status = 'UPHOLD'`,
			c.ToUserID, c.Category,
		).Scan(&upheld); err != nil {
			return apperr.Storage(err)
		}
		demote = DemotionDue(upheld)
	}

	// VIP revocation is an escalation of the upheld customer complaint; a
	// dismissed complaint only warns the filer, it never touches VIP status.
	deregister := false
	if warnedRole == "customer" {
		switch {
		case DeregistrationDue(warnings):
			deregister = true
		case outcome == ComplaintUpheld && c.Category == CategoryCustomer && VIPRevocationDue(warnedVIP, warnings):
			if _, err := tx.Exec(ctx,
				`UPDATE users SET is_vip = FALSE WHERE id = $1`, warnedID,
			); err != nil {
				return apperr.Storage(err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	if demote {
		if err := hr.DemoteEmployee(ctx, c.ToUserID,
			fmt.Sprintf("Three upheld %s complaints", c.Category)); err != nil {
			log.Printf("reputation: demotion for %s failed: %v", c.ToUserID, err)
		}
	}
	if deregister {
		if err := finance.CloseAccount(ctx, warnedID, &managerID, finance.ReasonKicked); err != nil {
			log.Printf("reputation: deregistration for %s failed: %v", warnedID, err)
		}
	}

	alerts.NotifyUser(warnedID, "complaint", "Warning issued", warnReason)
	if outcome == ComplaintUpheld {
		alerts.NotifyUser(c.FromUserID, "complaint", "Complaint upheld",
			fmt.Sprintf("Your complaint #%s was upheld", complaintID))
	} else {
		alerts.NotifyUser(c.ToUserID, "complaint", "Complaint dismissed",
			fmt.Sprintf("Complaint #%s against you was dismissed", complaintID))
	}
	return nil
}

// FileComplaintHandler handles POST /reputation/complaints.
func FileComplaintHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		ToUserID    string  `json:"to_user_id"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		OrderID     *string `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil || req.ToUserID == "" || req.Category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: to_user_id and category required"})
	}

	id, err := FileComplaint(c.Request().Context(), uid, req.ToUserID, req.Category, req.Description, req.OrderID)
	if err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"complaint_id": id})
}

// ResolveComplaintHandler handles POST /manage/complaints/:id/resolve (managers only).
func ResolveComplaintHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	complaintID := c.Param("id")
	if complaintID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing complaint id in URL"})
	}

	var req struct {
		Outcome string `json:"outcome"`
		Note    string `json:"note"`
	}
	if err := c.Bind(&req); err != nil || req.Outcome == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: outcome required"})
	}

	if err := ResolveComplaint(c.Request().Context(), uid, complaintID, req.Outcome, req.Note); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "complaint resolved"})
}

// ListPendingComplaintsHandler handles GET /manage/complaints (managers only).
func ListPendingComplaintsHandler(c echo.Context) error {
	rows, err := db.Conn.Query(c.Request().Context(),
		`SELECT id::text, from_user_id::text, to_user_id::text, category, description,
		        order_id::text, status, weight, created_at
		 FROM complaints WHERE status = 'PENDING' ORDER BY created_at ASC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load complaints"})
	}
	defer rows.Close()

	out := []Complaint{}
	for rows.Next() {
		var cp Complaint
		if err := rows.Scan(&cp.ID, &cp.FromUserID, &cp.ToUserID, &cp.Category, &cp.Description,
			&cp.OrderID, &cp.Status, &cp.Weight, &cp.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to scan complaint"})
		}
		out = append(out, cp)
	}
	return c.JSON(http.StatusOK, out)
}
