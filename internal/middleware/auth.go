package middleware

import (
	"errors"
	"net/http"
	"strings"

	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ClaimsKey is the echo context key holding the verified *jwtutil.ShopClaims
const ClaimsKey = "claims"

var (
	errMissingToken = errors.New("missing authorization token")
	errBadScheme    = errors.New("invalid authorization format, expected Bearer token")
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errBadScheme
	}
	return parts[1], nil
}

// verify checks the request's bearer token and stores its claims on the context.
// On failure it writes the 401 response and returns ok=false.
func verify(c echo.Context, jwt *jwtutil.JWTUtil) (claims *jwtutil.ShopClaims, ok bool, err error) {
	log := logger.FromContext(c)

	tokenString, err := bearerToken(c.Request().Header.Get("Authorization"))
	if err != nil {
		reason := "invalid_auth_format"
		if errors.Is(err, errMissingToken) {
			reason = "missing_token"
		}
		log.Warn("Rejected Authorization header", zap.String("reason", reason))
		prometheus.RecordAuthError(reason)
		return nil, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	claims, err = jwt.ValidateToken(tokenString)
	if err != nil {
		log.Warn("Invalid JWT token", zap.Error(err))
		prometheus.RecordAuthError("invalid_token")
		return nil, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": jwtutil.ErrInvalidToken.Error()})
	}

	c.Set(ClaimsKey, claims)
	return claims, true, nil
}

// AuthMiddleware validates the JWT token from the Authorization header
func AuthMiddleware(jwt *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok, err := verify(c, jwt)
			if !ok {
				return err
			}

			logger.FromContext(c).Debug("Request authenticated",
				zap.String("shop_name", claims.ShopName),
				zap.String("username", claims.Username))
			return next(c)
		}
	}
}

// Claims returns the verified token claims of the request, or nil
func Claims(c echo.Context) *jwtutil.ShopClaims {
	claims, _ := c.Get(ClaimsKey).(*jwtutil.ShopClaims)
	return claims
}
