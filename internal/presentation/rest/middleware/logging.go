package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// LoggingMiddleware アクセスログミドルウェア
// ErrorHandlerMiddlewareより外側に置き、確定したステータスコードで記録する
func LoggingMiddleware(logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			fields := map[string]interface{}{
				"method":      req.Method,
				"path":        req.URL.Path,
				"route":       c.Path(),
				"status_code": c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   c.RealIP(),
			}
			if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
				fields["request_id"] = requestID
			}
			if userID, ok := UserIDFrom(c); ok {
				fields["user_id"] = userID
			}

			switch {
			case err != nil:
				logger.Error(req.Context(), "HTTP request failed", err, fields)
			case c.Response().Status >= http.StatusInternalServerError:
				logger.Error(req.Context(), "HTTP request completed with server error", nil, fields)
			case c.Response().Status >= http.StatusBadRequest:
				logger.Warn(req.Context(), "HTTP request completed with client error", fields)
			default:
				logger.Info(req.Context(), "HTTP request completed", fields)
			}
			return err
		}
	}
}
