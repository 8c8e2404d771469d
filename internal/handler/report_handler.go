package handler

import (
	"fmt"
	"net/http"

	"ledger-service/internal/ledger"
	"ledger-service/internal/middleware"
	"ledger-service/internal/report"

	"github.com/labstack/echo/v4"
)

// ExportReport writes a PDF report of the daily (default), monthly or all orders
// and sends it as an attachment
func (h *Handler) ExportReport(c echo.Context) error {
	kind := ledger.RangeDaily
	if s := c.QueryParam("type"); s != "" {
		kind = ledger.Range(s)
	}

	rep, err := h.reports.Generate(c.Request().Context(), h.store(c), kind, report.Options{
		Trigger: "http",
		Tenant:  middleware.TenantName(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	// Serve the rendered bytes; the file on disk may be replaced by a later export
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rep.Filename))
	return c.Blob(http.StatusOK, "application/pdf", rep.Content)
}
