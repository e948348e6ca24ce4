package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/db"
)

type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	EmpType  string `json:"emp_type"`
}

// Default starting salary for approved employees, in cents.
const defaultSalary int64 = 3000_00

// ===== Signup =====
// Signup files a registration request. Nobody gets an account directly:
// a manager has to approve the registration, and blacklisted identities
// are turned away at the door.
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and a valid email are required"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	role := req.Role
	if role == "" {
		role = "customer"
	}
	var empType *string
	switch role {
	case "customer":
	case "employee":
		if req.EmpType != "chef" && req.EmpType != "delivery" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "employee registrations need emp_type chef or delivery"})
		}
		empType = &req.EmpType
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be customer or employee"})
	}

	ctx := c.Request().Context()

	var banned bool
	if err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blacklist WHERE username = $1 OR email = $2)`,
		req.Username, req.Email,
	).Scan(&banned); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if banned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "this identity is blacklisted"})
	}

	var taken bool
	if err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
		 OR EXISTS (SELECT 1 FROM registrations WHERE (username = $1 OR email = $2) AND status = 'PENDING')`,
		req.Username, req.Email,
	).Scan(&taken); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if taken {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already in use"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	salary := int64(0)
	if role == "employee" {
		salary = defaultSalary
	}

	regID := uuid.New().String()
	if _, err := db.Conn.Exec(ctx, `
		INSERT INTO registrations (id, username, email, password_hash, phone, role, emp_type, salary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, regID, req.Username, req.Email, string(hashed), req.Phone, role, empType, salary); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	alerts.NotifyManagers("New registration", "Registration from "+req.Username+" awaits approval")

	return c.JSON(http.StatusCreated, echo.Map{
		"registration_id": regID,
		"message":         "registration submitted, awaiting manager approval",
	})
}

// ===== Registration review (managers) =====

// ApproveRegistration handles POST /manage/registrations/:id/approve.
// Creates the user and their wallet in one transaction.
func ApproveRegistration(c echo.Context) error {
	managerID, _ := c.Get("user_id").(string)
	regID := c.Param("id")
	if regID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing registration id in URL"})
	}

	ctx := c.Request().Context()
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db transaction error"})
	}
	defer tx.Rollback(ctx)

	var username, email, passwordHash, role, status string
	var phone, empType *string
	var salary int64
	err = tx.QueryRow(ctx, `
		SELECT username, email, password_hash, phone, role, emp_type, salary, status
		FROM registrations WHERE id = $1 FOR UPDATE
	`, regID).Scan(&username, &email, &passwordHash, &phone, &role, &empType, &salary, &status)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	if status != "PENDING" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "registration already reviewed"})
	}

	userID := uuid.New().String()
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, phone, role, emp_type, salary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, userID, username, email, passwordHash, phone, role, empType, salary); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already in use"})
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (id, user_id, balance) VALUES ($1, $2, 0)
	`, uuid.New().String(), userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet creation failed"})
	}

	if _, err := tx.Exec(ctx, `
		UPDATE registrations SET status = 'APPROVED', approved_by = $1, approved_at = NOW() WHERE id = $2
	`, managerID, regID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approval failed"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction failed"})
	}

	alerts.NotifyUser(userID, "account", "Welcome!", "Your registration has been approved. You can now log in.")

	return c.JSON(http.StatusCreated, echo.Map{"user_id": userID, "message": "registration approved"})
}

// RejectRegistration handles POST /manage/registrations/:id/reject.
func RejectRegistration(c echo.Context) error {
	managerID, _ := c.Get("user_id").(string)
	regID := c.Param("id")
	if regID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing registration id in URL"})
	}

	res, err := db.Conn.Exec(c.Request().Context(), `
		UPDATE registrations SET status = 'REJECTED', approved_by = $1, approved_at = NOW()
		WHERE id = $2 AND status = 'PENDING'
	`, managerID, regID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rejection failed"})
	}
	if res.RowsAffected() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "registration not found or already reviewed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "registration rejected"})
}

// ListRegistrations handles GET /manage/registrations.
func ListRegistrations(c echo.Context) error {
	rows, err := db.Conn.Query(c.Request().Context(), `
		SELECT id::text, username, email, role, emp_type, status, created_at
		FROM registrations WHERE status = 'PENDING' ORDER BY created_at ASC
	`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load registrations"})
	}
	defer rows.Close()

	type registration struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		Role      string    `json:"role"`
		EmpType   *string   `json:"emp_type,omitempty"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := []registration{}
	for rows.Next() {
		var r registration
		if err := rows.Scan(&r.ID, &r.Username, &r.Email, &r.Role, &r.EmpType, &r.Status, &r.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to scan registration"})
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, out)
}
