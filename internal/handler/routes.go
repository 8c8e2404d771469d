package handler

import (
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
)

// Middlewares are the route-level middlewares wired by RegisterRoutes
type Middlewares struct {
	Auth         echo.MiddlewareFunc
	Tenant       echo.MiddlewareFunc
	LoginLimiter echo.MiddlewareFunc // optional
}

// RegisterRoutes mounts every endpoint on e
func RegisterRoutes(e *echo.Echo, h *Handler, mw Middlewares) {
	// Public routes - no authentication required
	e.GET("/health", HealthCheck)
	e.GET("/ready", h.Ready)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Shop management
	e.POST("/shops", h.CreateShop)
	e.GET("/shops", h.ListShops)
	e.POST("/select-db", h.SelectDB)

	// Authentication
	e.POST("/register-shop", h.RegisterShop)
	if mw.LoginLimiter != nil {
		e.POST("/login", h.Login, mw.LoginLimiter)
	} else {
		e.POST("/login", h.Login)
	}

	// Token-gated routes
	e.GET("/protected-resource", h.ProtectedResource, mw.Auth)
	e.POST("/shops/:shop/users", h.AddUser, mw.Auth)

	// Tenant routes - the shop database comes from the request headers
	e.POST("/shops/:shop/create-table", h.CreateTable, mw.Tenant)
	e.POST("/shops/:shop/create-dynamic-table", h.CreateDynamicTable, mw.Tenant)
	e.POST("/add-order", h.AddOrder, mw.Tenant)
	e.GET("/data", h.LatestOrders, mw.Tenant)
	e.GET("/summary", h.Summary, mw.Tenant)
	e.GET("/export-report", h.ExportReport, mw.Tenant)
	e.POST("/transactions", h.AddTransaction, mw.Tenant)
	e.GET("/transactions", h.ListTransactions, mw.Tenant)
}
