package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "request_id"

// FromContext returns the global logger enriched with the request ID
// stored in the echo context by the request-id middleware.
func FromContext(c echo.Context) *zap.Logger {
	reqID, ok := c.Get(RequestIDKey).(string)
	if !ok {
		reqID = "unknown"
	}
	return GetLogger().With(zap.String("request_id", reqID))
}
