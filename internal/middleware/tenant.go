package middleware

import (
	"errors"
	"net/http"

	"ledger-service/internal/shop"
	"ledger-service/pkg/database"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Headers naming the tenant database of a request, in lookup order
const (
	DatabaseNameHeader = "X-Database-Name"
	ShopIDHeader       = "X-Shop-Id"
)

const (
	tenantKey   = "tenant"
	tenantDBKey = "tenant_db"
)

// Tenants hands out shop database handles; *database.Registry implements it
type Tenants interface {
	Get(name string) (*gorm.DB, error)
}

// TenantConfig configures tenant selection
type TenantConfig struct {
	Tenants Tenants
	// Scope limits the selectable databases; Scope.Default is used when no header names one
	Scope shop.Scope
	// RequireAuth additionally demands a bearer token issued for the selected tenant
	RequireAuth bool
	JWT         *jwtutil.JWTUtil
}

// TenantMiddleware resolves the tenant database named by the request headers,
// falling back to the configured default, and stores its handle on the context
func TenantMiddleware(config TenantConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			name := c.Request().Header.Get(DatabaseNameHeader)
			if name == "" {
				name = c.Request().Header.Get(ShopIDHeader)
			}
			if name == "" {
				name = config.Scope.Default
			}
			if !shop.ValidDatabaseName(name) {
				log.Warn("Rejected tenant header", zap.String("tenant", name))
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid database name"})
			}
			if !config.Scope.Allows(name) {
				log.Warn("Rejected non-tenant database", zap.String("tenant", name))
				return c.JSON(http.StatusNotFound, echo.Map{"error": "database not found", "database": name})
			}

			if config.RequireAuth {
				claims, ok, err := verify(c, config.JWT)
				if !ok {
					return err
				}
				if claims.ShopName != name {
					log.Warn("Token issued for another shop",
						zap.String("tenant", name),
						zap.String("shop_name", claims.ShopName))
					prometheus.RecordAuthError("wrong_shop")
					return c.JSON(http.StatusForbidden, echo.Map{"error": "token does not grant access to this shop"})
				}
			}

			db, err := config.Tenants.Get(name)
			if err != nil {
				if errors.Is(err, database.ErrTenantNotFound) {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "database not found", "database": name})
				}
				log.Error("Failed to open tenant database", zap.String("tenant", name), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error":  "failed to connect to database",
					"detail": err.Error(),
				})
			}

			c.Set(tenantKey, name)
			c.Set(tenantDBKey, db)
			logger.SetLogger(c, log.With(zap.String("tenant", name)))
			return next(c)
		}
	}
}

// TenantName returns the tenant database selected for the request
func TenantName(c echo.Context) string {
	name, _ := c.Get(tenantKey).(string)
	return name
}

// TenantDB returns the tenant database handle selected for the request
func TenantDB(c echo.Context) *gorm.DB {
	db, _ := c.Get(tenantDBKey).(*gorm.DB)
	return db
}
