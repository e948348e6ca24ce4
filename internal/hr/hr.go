package hr

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

// HR action types recorded in hr_actions.
const (
	ActionDemotion    = "DEMOTION"
	ActionPromotion   = "PROMOTION"
	ActionTermination = "TERMINATION"
)

const (
	demotionCutPercent    = 15
	promotionRaisePercent = 10
	promotionBonusPercent = 20
	serviceBonusPercent   = 10
	// A second demotion without an intervening promotion ends employment.
	terminationDemotions = 2
)

// DemoteEmployee cuts an employee's salary by 15% and records the action.
// An employee hitting their second demotion is terminated in the same
// transaction.
func DemoteEmployee(ctx context.Context, employeeID, reason string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	var role string
	var salary int64
	var demotions int
	err = tx.QueryRow(ctx,
		`SELECT role, salary, demotions FROM users WHERE id = $1 AND status = 'ACTIVE' FOR UPDATE`,
		employeeID,
	).Scan(&role, &salary, &demotions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("employee %s", employeeID)
		}
		return apperr.Storage(err)
	}
	if role != "employee" {
		return apperr.Validationf("user %s is not an employee", employeeID)
	}

	cut := salary * demotionCutPercent / 100
	newSalary := salary - cut
	demotions++

	if _, err := tx.Exec(ctx,
		`UPDATE users SET salary = $1, demotions = $2 WHERE id = $3`,
		newSalary, demotions, employeeID,
	); err != nil {
		return apperr.Storage(err)
	}
	if err := recordAction(ctx, tx, employeeID, ActionDemotion, reason, -cut, 0); err != nil {
		return err
	}

	terminated := demotions >= terminationDemotions
	if terminated {
		if err := terminateTx(ctx, tx, employeeID, "Terminated after repeated demotions"); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	if terminated {
		alerts.NotifyUser(employeeID, "hr", "Employment terminated",
			"Your employment has been terminated after repeated demotions.")
	} else {
		alerts.NotifyUser(employeeID, "hr", "Demotion notice",
			fmt.Sprintf("You have been demoted. New salary: $%.2f. Reason: %s", float64(newSalary)/100, reason))
	}
	return nil
}

// PromoteEmployee raises salary by 10%, pays a 20% one-time bonus on the new
// salary, and clears the demotion counter.
func PromoteEmployee(ctx context.Context, employeeID, reason string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	var role string
	var salary int64
	err = tx.QueryRow(ctx,
		`SELECT role, salary FROM users WHERE id = $1 AND status = 'ACTIVE' FOR UPDATE`,
		employeeID,
	).Scan(&role, &salary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("employee %s", employeeID)
		}
		return apperr.Storage(err)
	}
	if role != "employee" {
		return apperr.Validationf("user %s is not an employee", employeeID)
	}

	newSalary := salary + salary*promotionRaisePercent/100
	bonus := newSalary * promotionBonusPercent / 100

	if _, err := tx.Exec(ctx,
		`UPDATE users SET salary = $1, demotions = 0 WHERE id = $2`,
		newSalary, employeeID,
	); err != nil {
		return apperr.Storage(err)
	}
	if err := recordAction(ctx, tx, employeeID, ActionPromotion, reason, newSalary-salary, bonus); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	alerts.NotifyUser(employeeID, "hr", "Promotion",
		fmt.Sprintf("Congratulations! New salary: $%.2f plus a bonus of $%.2f. Reason: %s",
			float64(newSalary)/100, float64(bonus)/100, reason))
	return nil
}

// AwardBonus pays a one-time bonus of 10% of salary without changing it.
func AwardBonus(ctx context.Context, employeeID, reason string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	var role string
	var salary int64
	err = tx.QueryRow(ctx,
		`SELECT role, salary FROM users WHERE id = $1 AND status = 'ACTIVE' FOR UPDATE`,
		employeeID,
	).Scan(&role, &salary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("employee %s", employeeID)
		}
		return apperr.Storage(err)
	}
	if role != "employee" {
		return apperr.Validationf("user %s is not an employee", employeeID)
	}

	bonus := salary * serviceBonusPercent / 100
	if err := recordAction(ctx, tx, employeeID, ActionPromotion, reason, 0, bonus); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	alerts.NotifyUser(employeeID, "hr", "Bonus awarded",
		fmt.Sprintf("You earned a bonus of $%.2f. %s", float64(bonus)/100, reason))
	return nil
}

// TerminateEmployee ends employment immediately.
func TerminateEmployee(ctx context.Context, employeeID, reason string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	var role string
	err = tx.QueryRow(ctx,
		`SELECT role FROM users WHERE id = $1 AND status = 'ACTIVE' FOR UPDATE`, employeeID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFoundf("employee %s", employeeID)
		}
		return apperr.Storage(err)
	}
	if role != "employee" {
		return apperr.Validationf("user %s is not an employee", employeeID)
	}

	if err := terminateTx(ctx, tx, employeeID, reason); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage(err)
	}

	alerts.NotifyUser(employeeID, "hr", "Employment terminated", reason)
	return nil
}

// terminateTx marks the employee TERMINATED and retires their market
// presence: dishes go inactive, still-open deliveries become UNASSIGNED.
func terminateTx(ctx context.Context, tx pgx.Tx, employeeID, reason string) error {
	if _, err := tx.Exec(ctx,
		`UPDATE users SET status = 'TERMINATED', terminated_at = NOW(), termination_reason = $1
		 WHERE id = $2`,
		reason, employeeID,
	); err != nil {
		return apperr.Storage(err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE dishes SET active = FALSE WHERE chef_id = $1`, employeeID,
	); err != nil {
		return apperr.Storage(err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE deliveries SET status = 'UNASSIGNED', updated_at = NOW()
		 WHERE agent_id = $1 AND status IN ('ASSIGNED', 'ON_ROUTE')`,
		employeeID,
	); err != nil {
		return apperr.Storage(err)
	}
	return recordAction(ctx, tx, employeeID, ActionTermination, reason, 0, 0)
}

func recordAction(ctx context.Context, tx pgx.Tx, employeeID, action, reason string, salaryChange, bonus int64) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO hr_actions (id, employee_id, action_type, reason, salary_change, bonus)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), employeeID, action, reason, salaryChange, bonus,
	); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func bindHRRequest(c echo.Context) (employeeID, reason string, ok bool) {
	employeeID = c.Param("id")
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || employeeID == "" || req.Reason == "" {
		return "", "", false
	}
	return employeeID, req.Reason, true
}

// DemoteHandler handles POST /manage/employees/:id/demote (managers only).
func DemoteHandler(c echo.Context) error {
	employeeID, reason, ok := bindHRRequest(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}
	if err := DemoteEmployee(c.Request().Context(), employeeID, reason); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "employee demoted"})
}

// PromoteHandler handles POST /manage/employees/:id/promote (managers only).
func PromoteHandler(c echo.Context) error {
	employeeID, reason, ok := bindHRRequest(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}
	if err := PromoteEmployee(c.Request().Context(), employeeID, reason); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "employee promoted"})
}

// TerminateHandler handles POST /manage/employees/:id/terminate (managers only).
func TerminateHandler(c echo.Context) error {
	employeeID, reason, ok := bindHRRequest(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload: reason required"})
	}
	if err := TerminateEmployee(c.Request().Context(), employeeID, reason); err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "employee terminated"})
}
