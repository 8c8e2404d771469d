package handler

import (
	"net/http"
	"strconv"

	"ledger-service/internal/ledger"
	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AddOrder inserts an order into the selected shop
func (h *Handler) AddOrder(c echo.Context) error {
	var in ledger.OrderInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request")
	}

	order, err := h.store(c).AddOrder(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromContext(c).Info("Order added", zap.Uint("id", order.ID))
	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "id": order.ID})
}

// LatestOrders returns the newest orders, five unless ?limit says otherwise
func (h *Handler) LatestOrders(c echo.Context) error {
	limit := ledger.DefaultLatestLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return badRequest(c, "limit must be an integer")
		}
		limit = n
	}

	orders, err := h.store(c).LatestOrders(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": orders})
}

// Summary aggregates the orders of the weekly (default) or monthly window
func (h *Handler) Summary(c echo.Context) error {
	r := ledger.RangeWeekly
	if s := c.QueryParam("range"); s != "" {
		r = ledger.Range(s)
	}

	summary, err := h.store(c).Summarize(c.Request().Context(), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
