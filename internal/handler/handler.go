package handler

import (
	"errors"
	"net/http"
	"time"

	"ledger-service/internal/ledger"
	"ledger-service/internal/middleware"
	"ledger-service/internal/report"
	"ledger-service/internal/schema"
	"ledger-service/internal/shop"
	"ledger-service/pkg/database"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tenants hands out shop database handles; *database.Registry implements it
type Tenants interface {
	Get(name string) (*gorm.DB, error)
}

// Handler serves the HTTP API
type Handler struct {
	shops   *shop.Provisioner
	tenants Tenants
	scope   shop.Scope
	jwt     *jwtutil.JWTUtil
	reports *report.Generator
	now     func() time.Time
}

// Deps are the collaborators of a Handler
type Deps struct {
	Shops   *shop.Provisioner
	Tenants Tenants
	Scope   shop.Scope
	JWT     *jwtutil.JWTUtil
	Reports *report.Generator
	// Clock defaults to time.Now
	Clock func() time.Time
}

// New creates a Handler
func New(deps Deps) *Handler {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Handler{
		shops:   deps.Shops,
		tenants: deps.Tenants,
		scope:   deps.Scope,
		jwt:     deps.JWT,
		reports: deps.Reports,
		now:     now,
	}
}

// store returns the ledger store of the tenant selected for the request
func (h *Handler) store(c echo.Context) *ledger.Store {
	return ledger.NewStore(middleware.TenantDB(c)).WithClock(h.now)
}

// respondError maps an error onto an HTTP status and writes {"error": ...}.
// Storage failures carry the driver message in "detail".
func respondError(c echo.Context, err error) error {
	log := logger.FromContext(c)

	switch {
	case errors.Is(err, schema.ErrInvalidIdentifier),
		errors.Is(err, schema.ErrInvalidType),
		errors.Is(err, schema.ErrInvalidConstraint),
		errors.Is(err, schema.ErrNoColumns),
		errors.Is(err, schema.ErrDuplicateColumn),
		errors.Is(err, schema.ErrUnknownTableKind),
		errors.Is(err, shop.ErrInvalidShopName),
		errors.Is(err, shop.ErrInvalidUser),
		errors.Is(err, ledger.ErrInvalidOrder),
		errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, ledger.ErrInvalidRange):
		log.Warn("Rejected request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})

	case errors.Is(err, shop.ErrInvalidCredentials), errors.Is(err, jwtutil.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})

	case errors.Is(err, database.ErrTenantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "database not found"})

	case errors.Is(err, shop.ErrShopExists),
		errors.Is(err, shop.ErrUserExists),
		errors.Is(err, ledger.ErrTableExists):
		log.Warn("Conflict", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})

	case errors.Is(err, database.ErrStorage):
		log.Error("Storage failure", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":  "database operation failed",
			"detail": err.Error(),
		})
	}

	log.Error("Request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
