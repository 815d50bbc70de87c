package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authapp "keyshop-server/internal/application/auth"
	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// UserIDKey 認証済みユーザーIDを格納するecho.Contextのキー
const UserIDKey = "user_id"

// UserIDFrom 認証ミドルウェアが設定したユーザーIDを取得
func UserIDFrom(c echo.Context) (string, bool) {
	userID, ok := c.Get(UserIDKey).(string)
	return userID, ok && userID != ""
}

// AuthMiddleware JWT認証ミドルウェア
func AuthMiddleware(cfg *config.JWTConfig, logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				logger.Warn(ctx, "Missing authorization header", nil)
				return unauthorized(c, "Missing authorization header")
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				logger.Warn(ctx, "Invalid authorization header format", nil)
				return unauthorized(c, "Invalid authorization header format")
			}

			userID, err := authapp.ParseUserID(cfg, strings.TrimSpace(tokenString))
			if err != nil {
				logger.Warn(ctx, "Invalid token", map[string]interface{}{
					"error": err.Error(),
				})
				return unauthorized(c, "Invalid or expired token")
			}

			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}
