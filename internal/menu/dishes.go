package menu

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/RammasunW/tablefare/internal/apperr"
	"github.com/RammasunW/tablefare/internal/db"
)

// Dish is a menu entry owned by a chef. Price is in minor units.
type Dish struct {
	ID          string    `json:"id"`
	ChefID      string    `json:"chef_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"image_url,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// DishSnapshot is the read the order pipeline takes when pricing a cart.
// Price and chef attribution are captured at order time and never re-read.
type DishSnapshot struct {
	ID     string
	ChefID string
	Price  int64
	Active bool
}

// ResolveDish looks up the pricing snapshot for a dish.
func ResolveDish(ctx context.Context, dishID string) (DishSnapshot, error) {
	var s DishSnapshot
	err := db.Conn.QueryRow(ctx,
		`SELECT id::text, chef_id::text, price, active FROM dishes WHERE id = $1`, dishID,
	).Scan(&s.ID, &s.ChefID, &s.Price, &s.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DishSnapshot{}, apperr.ErrDishUnavailable
		}
		return DishSnapshot{}, apperr.Storage(err)
	}
	return s, nil
}

// CreateDishHandler handles POST /dishes (chefs only).
func CreateDishHandler(c echo.Context) error {
	uid, _ := c.Get("user_id").(string)
	empType, _ := c.Get("emp_type").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if empType != "chef" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a chef"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
		ImageURL    string `json:"image_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be positive"})
	}
	if len(req.Name) < 1 || len(req.Name) > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dish name must be 1-100 characters"})
	}
	if req.ImageURL != "" {
		if u, err := url.Parse(req.ImageURL); err != nil || u.Scheme == "" || u.Host == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid image URL"})
		}
	}

	ctx := context.Background()
	var exists bool
	if err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM dishes WHERE chef_id = $1 AND name = $2)`,
		uid, req.Name).Scan(&exists); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"error": "dish name already exists in your menu"})
	}

	dishID := uuid.New().String()
	if _, err := db.Conn.Exec(ctx,
		`INSERT INTO dishes (id, chef_id, name, description, price, image_url, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		dishID, uid, req.Name, req.Description, req.Price, req.ImageURL,
	); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create dish"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"dish_id": dishID})
}

// ListDishesHandler handles GET /dishes (active dishes only).
func ListDishesHandler(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id::text, chef_id::text, name, COALESCE(description, ''), price, COALESCE(image_url, ''), active, created_at
		 FROM dishes WHERE active = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch dishes"})
	}
	defer rows.Close()

	var dishes []Dish
	for rows.Next() {
		var d Dish
		if err := rows.Scan(&d.ID, &d.ChefID, &d.Name, &d.Description, &d.Price, &d.ImageURL, &d.Active, &d.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan error"})
		}
		dishes = append(dishes, d)
	}
	return c.JSON(http.StatusOK, echo.Map{"dishes": dishes})
}
