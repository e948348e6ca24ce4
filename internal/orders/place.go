package orders

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
	"github.com/RammasunW/tablefare/internal/menu"
	"github.com/RammasunW/tablefare/internal/reputation"
)

type cartLine struct {
	dishID   string
	chefID   string
	quantity int
	price    int64
}

// Place validates the cart, prices it against a dish snapshot, and atomically
// creates the order, its items, and the wallet debit. A shortfall records a
// punitive warning even though no order is created.
func Place(ctx context.Context, customerID string, items []CartItem, deliveryAddress string) (string, error) {
	if len(items) == 0 {
		return "", apperr.Validationf("cart is empty")
	}
	if deliveryAddress == "" {
		return "", apperr.Validationf("delivery address is required")
	}

	var warnings int
	var isVIP bool
	err := db.Conn.QueryRow(ctx,
		`SELECT warnings, is_vip FROM users WHERE id = $1`, customerID,
	).Scan(&warnings, &isVIP)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFoundf("customer %s", customerID)
		}
		return "", apperr.Storage(err)
	}
	if Suspended(warnings) {
		return "", apperr.ErrAccountSuspended
	}

	// Price snapshot. The dish loop runs unlocked: pricing captures the dish
	// as seen now, it is not a live reservation.
	var subtotal int64
	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return "", apperr.Validationf("quantity must be positive for dish %s", item.DishID)
		}
		dish, err := menu.ResolveDish(ctx, item.DishID)
		if err != nil {
			return "", err
		}
		if !dish.Active {
			return "", fmt.Errorf("%w: %s", apperr.ErrDishUnavailable, item.DishID)
		}
		subtotal += dish.Price * int64(item.Quantity)
		lines = append(lines, cartLine{dishID: dish.ID, chefID: dish.ChefID, quantity: item.Quantity, price: dish.Price})
	}

	completed := 0
	if isVIP {
		if err := db.Conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE customer_id = $1 AND status = 'COMPLETED'`, customerID,
		).Scan(&completed); err != nil {
			return "", apperr.Storage(err)
		}
	}
	quote := ComputeQuote(subtotal, isVIP, completed)

	orderID := uuid.New().String()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return "", apperr.Storage(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO orders (id, customer_id, status, subtotal, discount, total, delivery_address, free_delivery)
		 VALUES ($1, $2, 'PENDING', $3, $4, $5, $6, $7)`,
		orderID, customerID, quote.Subtotal, quote.Discount, quote.Total, deliveryAddress, quote.FreeDelivery,
	); err != nil {
		return "", apperr.Storage(err)
	}
	for _, l := range lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, dish_id, chef_id, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), orderID, l.dishID, l.chefID, l.quantity, l.price,
		); err != nil {
			return "", apperr.Storage(err)
		}
	}

	if _, err := ledger.DebitTx(ctx, tx, customerID, quote.Total, ledger.KindOrder, ledger.OrderDescription(orderID)); err != nil {
		if errors.Is(err, apperr.ErrInsufficientFunds) {
			// Punitive policy: the failed attempt still earns a warning that
			// counts toward suspension. Rolled back order, separate commit.
			tx.Rollback(ctx)
			if _, werr := reputation.AddWarning(ctx, customerID, "Insufficient balance for order"); werr != nil {
				return "", werr
			}
		}
		return "", err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET spent = spent + $1 WHERE id = $2`, quote.Total, customerID,
	); err != nil {
		return "", apperr.Storage(err)
	}
	if !isVIP {
		var spent int64
		var ordersCount int
		if err := tx.QueryRow(ctx,
			`UPDATE users SET orders_count = orders_count + 1 WHERE id = $1 RETURNING spent, orders_count`,
			customerID,
		).Scan(&spent, &ordersCount); err != nil {
			return "", apperr.Storage(err)
		}

		var pendingAgainst int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM complaints WHERE to_user_id = $1 AND status = 'PENDING'`, customerID,
		).Scan(&pendingAgainst); err != nil {
			return "", apperr.Storage(err)
		}
		if PromotionDue(isVIP, spent, ordersCount, pendingAgainst) {
			if _, err := tx.Exec(ctx, `UPDATE users SET is_vip = TRUE WHERE id = $1`, customerID); err != nil {
				return "", apperr.Storage(err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", apperr.Storage(err)
	}

	seen := map[string]bool{}
	for _, l := range lines {
		if seen[l.chefID] {
			continue
		}
		seen[l.chefID] = true
		alerts.NotifyChef(l.chefID, "New order received", fmt.Sprintf("New order received: Order #%s", orderID))
	}
	alerts.NotifyManagers("Order queued for delivery bidding", fmt.Sprintf("Order #%s queued for delivery bidding", orderID))

	return orderID, nil
}

// PlaceHandler handles POST /orders
func PlaceHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Items           []CartItem `json:"items"`
		DeliveryAddress string     `json:"delivery_address"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	orderID, err := Place(c.Request().Context(), uid, req.Items, req.DeliveryAddress)
	if err != nil {
		return c.JSON(apperr.Status(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"order_id": orderID, "message": "Order placed successfully"})
}

// ListMineHandler handles GET /orders
func ListMineHandler(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id::text, customer_id::text, status, subtotal, discount, total, delivery_address, free_delivery, delivery_id::text, order_date
		 FROM orders WHERE customer_id = $1 ORDER BY order_date DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch orders"})
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Subtotal, &o.Discount, &o.Total, &o.DeliveryAddress, &o.FreeDelivery, &o.DeliveryID, &o.OrderDate); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		list = append(list, o)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": list})
}
