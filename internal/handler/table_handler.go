package handler

import (
	"net/http"

	"ledger-service/internal/middleware"
	"ledger-service/internal/schema"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateTable creates one of the predefined ledger tables in the selected shop
func (h *Handler) CreateTable(c echo.Context) error {
	prometheus.RecordShopOperation("create_table")

	var req struct {
		TableType string `json:"table_type"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	ddl, err := schema.CannedTable(req.TableType)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.store(c).CreateTable(c.Request().Context(), ddl); err != nil {
		return respondError(c, err)
	}

	logger.FromContext(c).Info("Table created", zap.String("table_type", req.TableType))
	return c.JSON(http.StatusCreated, echo.Map{
		"status":   "success",
		"shop":     c.Param("shop"),
		"database": middleware.TenantName(c),
	})
}

// CreateDynamicTable creates a table from a validated column descriptor
func (h *Handler) CreateDynamicTable(c echo.Context) error {
	prometheus.RecordShopOperation("create_dynamic_table")

	var req schema.TableRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	ddl, err := req.BuildCreateTable()
	if err != nil {
		return respondError(c, err)
	}

	if err := h.store(c).CreateTable(c.Request().Context(), ddl); err != nil {
		return respondError(c, err)
	}

	logger.FromContext(c).Info("Dynamic table created", zap.String("table", req.TableName))
	return c.JSON(http.StatusCreated, echo.Map{
		"status":   "success",
		"sql":      ddl,
		"shop":     c.Param("shop"),
		"database": middleware.TenantName(c),
	})
}
