package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	"keyshop-server/internal/presentation/access"
)

// APIKeyHeader 運用者APIキーのヘッダー名
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware 運用者API用のAPIキー認証ミドルウェア
// クライアントIPはecho.Context.RealIPで判定するため、信頼するプロキシはEcho#IPExtractorで設定する
func APIKeyMiddleware(cfg *config.AdminAPIConfig, logger *otelinfra.Logger) echo.MiddlewareFunc {
	allowed, invalid := access.ParseAllowList(cfg.AllowedIPs)
	for _, entry := range invalid {
		logger.Warn(context.Background(), "Ignoring invalid allowed IP entry", map[string]interface{}{"entry": entry})
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if !cfg.Enabled {
				logger.Warn(ctx, "Admin API is disabled", nil)
				return c.JSON(http.StatusForbidden, ErrorResponse{
					Error:   "forbidden",
					Message: "Admin API is disabled",
				})
			}

			apiKey := c.Request().Header.Get(APIKeyHeader)
			if apiKey == "" {
				logger.Warn(ctx, "Missing X-API-Key header", nil)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "Missing X-API-Key header",
				})
			}

			if !access.ValidAPIKey(cfg.APIKey, apiKey) {
				logger.Warn(ctx, "Invalid API key", nil)
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "unauthorized",
					Message: "Invalid API key",
				})
			}

			if len(cfg.AllowedIPs) > 0 {
				clientIP := c.RealIP()
				if !allowed.Contains(clientIP) {
					logger.Warn(ctx, "IP address not allowed", map[string]interface{}{
						"ip": clientIP,
					})
					return c.JSON(http.StatusForbidden, ErrorResponse{
						Error:   "forbidden",
						Message: "IP address not allowed",
					})
				}
			}

			return next(c)
		}
	}
}
