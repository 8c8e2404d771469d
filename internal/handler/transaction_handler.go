package handler

import (
	"net/http"

	"ledger-service/internal/ledger"

	"github.com/labstack/echo/v4"
)

// AddTransaction records a credit or debit entry
func (h *Handler) AddTransaction(c echo.Context) error {
	var in ledger.TransactionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request")
	}

	tx, err := h.store(c).AddTransaction(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, tx)
}

// ListTransactions returns every entry, newest first
func (h *Handler) ListTransactions(c echo.Context) error {
	txs, err := h.store(c).Transactions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, txs)
}
