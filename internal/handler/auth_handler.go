package handler

import (
	"errors"
	"net/http"

	"ledger-service/internal/middleware"
	"ledger-service/internal/shop"
	"ledger-service/pkg/database"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type credentials struct {
	ShopName string `json:"shop_name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterShop creates a shop with its first user and returns a session token.
// The shop is named after shop_name, or the username when shop_name is empty.
func (h *Handler) RegisterShop(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req credentials
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	name := req.ShopName
	if name == "" {
		name = req.Username
	}

	ident, err := h.shops.RegisterShop(c.Request().Context(), name, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := h.jwt.GenerateToken(ident, req.Username)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.RecordShopOperation("register")
	return c.JSON(http.StatusCreated, echo.Map{
		"status":       "shop created",
		"database":     ident,
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Login exchanges a username and password for a session token.
// The shop comes from the shop_name query parameter or body field.
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req credentials
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return badRequest(c, "invalid request")
	}
	shopName := c.QueryParam("shop_name")
	if shopName == "" {
		shopName = req.ShopName
	}
	if !shop.ValidDatabaseName(shopName) {
		prometheus.RecordAuthError("invalid_shop")
		return badRequest(c, "invalid shop name")
	}

	// Unknown shops get the same answer, in the same time, as a wrong password
	if !h.scope.Allows(shopName) {
		prometheus.RecordAuthError("unknown_shop")
		return respondError(c, h.shops.RejectLogin(req.Password))
	}
	db, err := h.tenants.Get(shopName)
	if err != nil {
		if errors.Is(err, database.ErrTenantNotFound) {
			prometheus.RecordAuthError("unknown_shop")
			return respondError(c, h.shops.RejectLogin(req.Password))
		}
		return respondError(c, err)
	}

	user, err := h.shops.Authenticate(c.Request().Context(), db, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shop.ErrInvalidCredentials) {
			log.Warn("Login failed", zap.String("shop_name", shopName))
			prometheus.RecordAuthError("invalid_credentials")
		}
		return respondError(c, err)
	}

	token, err := h.jwt.GenerateToken(shopName, user.Username)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in", zap.String("shop_name", shopName), zap.String("username", user.Username))
	return c.JSON(http.StatusOK, echo.Map{"access_token": token, "token_type": "bearer"})
}

// ProtectedResource echoes the identity carried by the session token
func (h *Handler) ProtectedResource(c echo.Context) error {
	claims := middleware.Claims(c)
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "You are authenticated!",
		"shop_name": claims.ShopName,
		"username":  claims.Username,
	})
}

// AddUser lets an authenticated user of a shop create another user of the same shop
func (h *Handler) AddUser(c echo.Context) error {
	log := logger.FromContext(c)

	shopName := c.Param("shop")
	claims := middleware.Claims(c)
	if claims == nil || claims.ShopName != shopName {
		prometheus.RecordAuthError("wrong_shop")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "token does not grant access to this shop"})
	}

	var req credentials
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	db, err := h.tenants.Get(shopName)
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.shops.AddUser(c.Request().Context(), db, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("User created", zap.String("shop_name", shopName), zap.String("username", user.Username),
		zap.String("created_by", claims.Username))
	return c.JSON(http.StatusCreated, echo.Map{"status": "user created", "id": user.ID, "username": user.Username})
}
