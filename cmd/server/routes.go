package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/RammasunW/tablefare/internal/alerts"
	"github.com/RammasunW/tablefare/internal/auth"
	"github.com/RammasunW/tablefare/internal/delivery"
	"github.com/RammasunW/tablefare/internal/finance"
	"github.com/RammasunW/tablefare/internal/hr"
	"github.com/RammasunW/tablefare/internal/ledger"
	"github.com/RammasunW/tablefare/internal/menu"
	appmw "github.com/RammasunW/tablefare/internal/middleware"
	"github.com/RammasunW/tablefare/internal/orders"
	"github.com/RammasunW/tablefare/internal/reputation"
)

// newServer builds the echo instance with every route registered. Split from
// main so tests can spin up the same surface against a throwaway database.
func newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Public auth routes
	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.GET("/dishes", menu.ListDishesHandler) // public menu discovery

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	g.GET("/me", auth.Me)

	// Wallet
	g.POST("/wallet/deposit", ledger.DepositHandler)
	g.GET("/wallet/balance", ledger.BalanceHandler)
	g.GET("/wallet/transactions", ledger.TransactionsHandler)

	// Menu (chefs)
	g.POST("/dishes", menu.CreateDishHandler)

	// Orders
	g.POST("/orders", orders.PlaceHandler)
	g.GET("/orders", orders.ListMineHandler)
	g.POST("/orders/:id/refund", finance.RefundHandler, appmw.ManagerGuard)

	// Delivery bidding and progress
	g.POST("/delivery/orders/:id/bids", delivery.SubmitBidHandler)
	g.GET("/delivery/orders/:id/bids", delivery.ListBidsHandler, appmw.ManagerGuard)
	g.POST("/delivery/orders/:id/assign", delivery.AssignHandler, appmw.ManagerGuard)
	g.PATCH("/delivery/:id/status", delivery.UpdateStatusHandler)

	// Reputation
	g.POST("/reputation/complaints", reputation.FileComplaintHandler)
	g.POST("/reputation/compliments", reputation.FileComplimentHandler)

	// Notifications
	g.GET("/notifications", alerts.ListNotifications)
	g.PATCH("/notifications/:id/read", alerts.MarkNotificationRead)

	// Account closure (voluntary)
	g.POST("/account/close", finance.CloseOwnAccountHandler)

	// Manager console
	m := e.Group("/manage")
	m.Use(appmw.JWTMiddleware, appmw.RequireRoles("manager"))
	m.GET("/registrations", auth.ListRegistrations)
	m.POST("/registrations/:id/approve", auth.ApproveRegistration)
	m.POST("/registrations/:id/reject", auth.RejectRegistration)
	m.GET("/complaints", reputation.ListPendingComplaintsHandler)
	m.POST("/complaints/:id/resolve", reputation.ResolveComplaintHandler)
	m.POST("/users/:id/close", finance.CloseAccountHandler)
	m.POST("/employees/:id/demote", hr.DemoteHandler)
	m.POST("/employees/:id/promote", hr.PromoteHandler)
	m.POST("/employees/:id/terminate", hr.TerminateHandler)

	return e
}
