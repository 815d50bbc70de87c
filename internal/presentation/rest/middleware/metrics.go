package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// MetricsMiddleware リクエスト数・応答時間・エラー数を記録
func MetricsMiddleware(metrics *otelinfra.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			ctx := c.Request().Context()
			method := c.Request().Method
			// ルートテンプレートで集計する（パスパラメータを含めない）
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			metrics.RecordRequest(ctx, method, route)
			metrics.RecordResponseTime(ctx, method, route, time.Since(start).Seconds())

			status := c.Response().Status
			if err != nil && status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}
			switch {
			case status >= http.StatusInternalServerError:
				metrics.RecordError(ctx, "server_error")
			case status >= http.StatusBadRequest:
				metrics.RecordError(ctx, "client_error")
			}
			return err
		}
	}
}
