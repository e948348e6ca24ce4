package auth

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/RammasunW/tablefare/internal/db"
)

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// ===== Login =====
func Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	ident := strings.TrimSpace(req.Username)
	if ident == "" {
		ident = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if ident == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username (or email) and password required"})
	}

	ctx := c.Request().Context()

	var userID, passwordHash, role, status string
	var empType *string
	err := db.Conn.QueryRow(ctx, `
		SELECT id::text, password_hash, role, emp_type, status
		FROM users WHERE username = $1 OR email = $1
	`, ident).Scan(&userID, &passwordHash, &role, &empType, &status)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	switch status {
	case "DEREGISTERED":
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account has been closed"})
	case "TERMINATED":
		return c.JSON(http.StatusForbidden, echo.Map{"error": "employment has been terminated"})
	}

	if _, err := db.Conn.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, userID); err != nil {
		c.Logger().Warnf("failed to stamp last_login for %s: %v", userID, err)
	}

	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}
	if empType != nil {
		claims["emp_type"] = *empType
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: signed})
}

// Me handles GET /auth/me, returning the caller's profile.
func Me(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var out struct {
		ID          string  `json:"id"`
		Username    string  `json:"username"`
		Email       string  `json:"email"`
		Role        string  `json:"role"`
		EmpType     *string `json:"emp_type,omitempty"`
		Status      string  `json:"status"`
		Warnings    int     `json:"warnings"`
		IsVIP       bool    `json:"is_vip"`
		OrdersCount int     `json:"orders_count"`
		Spent       int64   `json:"spent"`
	}
	err := db.Conn.QueryRow(c.Request().Context(), `
		SELECT id::text, username, email, role, emp_type, status, warnings, is_vip, orders_count, spent
		FROM users WHERE id = $1
	`, uid).Scan(&out.ID, &out.Username, &out.Email, &out.Role, &out.EmpType, &out.Status,
		&out.Warnings, &out.IsVIP, &out.OrdersCount, &out.Spent)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, out)
}
