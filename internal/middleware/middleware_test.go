package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger-service/internal/shop"
	"ledger-service/pkg/database"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testJWT = jwtutil.NewJWTUtil(jwtutil.Config{SigningKey: "test-key", ExpirationMinutes: 30})

type stubTenants struct {
	dbs   map[string]*gorm.DB
	calls []string
}

func (s *stubTenants) Get(name string) (*gorm.DB, error) {
	s.calls = append(s.calls, name)
	if db, ok := s.dbs[name]; ok {
		return db, nil
	}
	if name == "shop_broken" {
		return nil, errors.New("connection refused")
	}
	return nil, database.ErrTenantNotFound
}

func serve(t *testing.T, mw echo.MiddlewareFunc, req *http.Request, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(handler)(c))
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestIDMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := serve(t, RequestIDMiddleware, req, okHandler)
	assert.Len(t, rec.Header().Get(logger.RequestIDKey), 36)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logger.RequestIDKey, "abc-123")
	rec = serve(t, RequestIDMiddleware, req, okHandler)
	assert.Equal(t, "abc-123", rec.Header().Get(logger.RequestIDKey))
}

func TestBearerToken(t *testing.T) {
	tok, err := bearerToken("bEaReR abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	_, err = bearerToken("")
	assert.ErrorIs(t, err, errMissingToken)
	for _, header := range []string{"Basic abc", "Bearer", "Bearer a b", "abc.def.ghi"} {
		_, err := bearerToken(header)
		assert.ErrorIs(t, err, errBadScheme, header)
	}
}

func TestAuthMiddleware(t *testing.T) {
	token, err := testJWT.GenerateToken("shop_acme_corp", "Acme Corp")
	require.NoError(t, err)

	t.Run("valid token stores claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected-resource", nil)
		req.Header.Set("Authorization", "bearer "+token)

		var seen *jwtutil.ShopClaims
		rec := serve(t, AuthMiddleware(testJWT), req, func(c echo.Context) error {
			seen = Claims(c)
			return okHandler(c)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "shop_acme_corp", seen.ShopName)
		assert.Equal(t, "Acme Corp", seen.Username)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected-resource", nil)
		rec := serve(t, AuthMiddleware(testJWT), req, okHandler)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		past := testJWT.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
		expired, err := past.GenerateToken("shop_acme_corp", "Acme Corp")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected-resource", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec := serve(t, AuthMiddleware(testJWT), req, okHandler)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid or expired token"}`, rec.Body.String())
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := jwtutil.NewJWTUtil(jwtutil.Config{SigningKey: "other-key", ExpirationMinutes: 30})
		forged, err := other.GenerateToken("shop_acme_corp", "Acme Corp")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected-resource", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := serve(t, AuthMiddleware(testJWT), req, okHandler)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

var testScope = shop.Scope{Prefix: "shop_", Default: "practice", Admin: "postgres"}

func TestTenantMiddleware(t *testing.T) {
	practice, acme := &gorm.DB{}, &gorm.DB{}
	newTenants := func() *stubTenants {
		return &stubTenants{dbs: map[string]*gorm.DB{"practice": practice, "shop_acme_corp": acme}}
	}

	t.Run("falls back to default", func(t *testing.T) {
		tenants := newTenants()
		req := httptest.NewRequest(http.MethodGet, "/data", nil)

		var gotName string
		var gotDB *gorm.DB
		rec := serve(t, TenantMiddleware(TenantConfig{Tenants: tenants, Scope: testScope}), req, func(c echo.Context) error {
			gotName, gotDB = TenantName(c), TenantDB(c)
			return okHandler(c)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "practice", gotName)
		assert.Same(t, practice, gotDB)
	})

	t.Run("header selects tenant", func(t *testing.T) {
		for _, header := range []string{DatabaseNameHeader, ShopIDHeader} {
			tenants := newTenants()
			req := httptest.NewRequest(http.MethodGet, "/data", nil)
			req.Header.Set(header, "shop_acme_corp")

			var gotDB *gorm.DB
			serve(t, TenantMiddleware(TenantConfig{Tenants: tenants, Scope: testScope}), req, func(c echo.Context) error {
				gotDB = TenantDB(c)
				return okHandler(c)
			})
			assert.Same(t, acme, gotDB, header)
		}
	})

	t.Run("unsafe header rejected before connecting", func(t *testing.T) {
		tenants := newTenants()
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set(DatabaseNameHeader, `shop_x"; DROP DATABASE practice; --`)

		rec := serve(t, TenantMiddleware(TenantConfig{Tenants: tenants, Scope: testScope}), req, okHandler)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, tenants.calls)
	})

	t.Run("non-tenant databases rejected before connecting", func(t *testing.T) {
		for _, name := range []string{"postgres", "template1", "billing"} {
			tenants := newTenants()
			req := httptest.NewRequest(http.MethodGet, "/data", nil)
			req.Header.Set(DatabaseNameHeader, name)

			rec := serve(t, TenantMiddleware(TenantConfig{Tenants: tenants, Scope: testScope}), req, okHandler)
			assert.Equal(t, http.StatusNotFound, rec.Code, name)
			assert.Empty(t, tenants.calls, name)
		}
	})

	t.Run("unknown tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set(DatabaseNameHeader, "shop_ghost")
		rec := serve(t, TenantMiddleware(TenantConfig{Tenants: newTenants(), Scope: testScope}), req, okHandler)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("connection failure", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set(DatabaseNameHeader, "shop_broken")
		rec := serve(t, TenantMiddleware(TenantConfig{Tenants: newTenants(), Scope: testScope}), req, okHandler)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})

	t.Run("required token must match tenant", func(t *testing.T) {
		config := TenantConfig{Tenants: newTenants(), Scope: testScope, RequireAuth: true, JWT: testJWT}
		token, err := testJWT.GenerateToken("shop_acme_corp", "Acme Corp")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := serve(t, TenantMiddleware(config), req, okHandler)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(DatabaseNameHeader, "shop_acme_corp")
		rec = serve(t, TenantMiddleware(config), req, okHandler)
		assert.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/data", nil)
		rec = serve(t, TenantMiddleware(config), req, okHandler)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
