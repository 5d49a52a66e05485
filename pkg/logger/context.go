package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDKey is the key used to store the request ID in context
const RequestIDKey = "X-Request-ID"

// FromContext retrieves the logger from echo context
// If no logger is found, returns the global logger
func FromContext(c echo.Context) *zap.Logger {
	if ctxLogger, ok := c.Get("logger").(*zap.Logger); ok {
		return ctxLogger
	}

	// If no logger in context, use global logger with request ID if available
	requestID := c.Response().Header().Get(RequestIDKey)
	if requestID != "" {
		return GetLogger().With(zap.String("request_id", requestID))
	}

	return GetLogger()
}
