package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the header carrying the request id
const RequestIDKey = "X-Request-ID"

const loggerKey = "logger"

type contextKey string

const ctxLoggerKey contextKey = "logger"

// FromContext retrieves the request logger from the Echo context
func FromContext(c echo.Context) *zap.Logger {
	if logger, ok := c.Get(loggerKey).(*zap.Logger); ok {
		return logger
	}

	requestID := c.Request().Header.Get(RequestIDKey)
	if requestID == "" {
		requestID = "unknown"
	}
	return GetLogger().With(zap.String("request_id", requestID))
}

// SetLogger replaces the request logger stored on the Echo context
func SetLogger(c echo.Context, logger *zap.Logger) {
	c.Set(loggerKey, logger)
}

// WithContext adds the logger to a standard context, used by background jobs
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, logger)
}

// FromStdContext retrieves the logger stored by WithContext
func FromStdContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey).(*zap.Logger); ok {
		return logger
	}
	return GetLogger()
}
