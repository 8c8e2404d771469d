package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every token that fails verification
var ErrInvalidToken = errors.New("invalid or expired token")

// Config holds JWT configuration
type Config struct {
	SigningKey        string
	ExpirationMinutes int
}

// ShopClaims is the claim set carried by a session token
type ShopClaims struct {
	ShopName string `json:"shop_name"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTUtil issues and verifies session tokens
type JWTUtil struct {
	config Config
	now    func() time.Time
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config Config) *JWTUtil {
	return &JWTUtil{config: config, now: time.Now}
}

// WithClock returns a copy that reads time from now, used by tests
func (j *JWTUtil) WithClock(now func() time.Time) *JWTUtil {
	cp := *j
	cp.now = now
	return &cp
}

// Expiration returns the lifetime of issued tokens
func (j *JWTUtil) Expiration() time.Duration {
	return time.Duration(j.config.ExpirationMinutes) * time.Minute
}

// GenerateToken creates a signed token for a user of a shop
func (j *JWTUtil) GenerateToken(shopName, username string) (string, error) {
	if j.config.SigningKey == "" {
		return "", errors.New("JWT signing key not configured")
	}

	issuedAt := j.now()
	claims := ShopClaims{
		ShopName: shopName,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.Expiration())),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken verifies signature and expiry and returns the claims.
// Every failure is reported as ErrInvalidToken with the cause wrapped.
func (j *JWTUtil) ValidateToken(tokenString string) (*ShopClaims, error) {
	claims := &ShopClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ShopName == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing shop_name or username", ErrInvalidToken)
	}
	return claims, nil
}
