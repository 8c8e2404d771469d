package handler

import (
	"net/http"
	"strings"

	"ledger-service/internal/shop"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateShop creates the database of a new shop and its base tables
func (h *Handler) CreateShop(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordShopOperation("create")

	var req struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	ident, err := h.shops.Identifier(req.Name)
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	if err := h.shops.CreateDatabase(ctx, ident); err != nil {
		return respondError(c, err)
	}

	db, err := h.tenants.Get(ident)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.shops.Bootstrap(ctx, db); err != nil {
		return respondError(c, err)
	}

	log.Info("Shop created", zap.String("database", ident), zap.String("owner", req.Owner))
	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "database": ident})
}

// ListShops lists the shop databases
func (h *Handler) ListShops(c echo.Context) error {
	prometheus.RecordShopOperation("list")

	shops, err := h.shops.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"shops": shops})
}

// SelectDB checks that a shop database exists
func (h *Handler) SelectDB(c echo.Context) error {
	prometheus.RecordShopOperation("select")

	var req struct {
		DBName string `json:"db_name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	name := strings.TrimSpace(req.DBName)
	if name == "" {
		return badRequest(c, "no database name provided")
	}
	if !shop.ValidDatabaseName(name) {
		return badRequest(c, "invalid database name")
	}
	if !h.scope.Allows(name) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "database not found"})
	}

	exists, err := h.shops.Exists(c.Request().Context(), name)
	if err != nil {
		return respondError(c, err)
	}
	if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "database not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "selected", "database": name})
}
