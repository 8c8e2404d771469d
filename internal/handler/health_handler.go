package handler

import (
	"context"
	"net/http"
	"time"

	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// HealthCheck handles the liveness endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "ledger-service",
	})
}

// Ready reports whether the database server is reachable
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	if err := h.shops.Ping(ctx); err != nil {
		logger.FromContext(c).Warn("Readiness check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unavailable",
			"database": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}
