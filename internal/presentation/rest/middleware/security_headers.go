package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP     = "default-src 'none'; frame-ancestors 'none'"
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com https://cdn.jsdelivr.net; style-src 'self' 'unsafe-inline' https://unpkg.com https://fonts.googleapis.com; font-src 'self' https://fonts.gstatic.com; img-src 'self' data: https:;"
)

// SecurityHeadersMiddleware セキュリティヘッダーを設定するミドルウェア
func SecurityHeadersMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			// キー内容を含むレスポンスがあるためキャッシュさせない
			h.Set("Cache-Control", "no-store")

			if isDocsPath(c.Request().URL.Path) {
				h.Set("Content-Security-Policy", swaggerCSP)
			} else {
				h.Set("Content-Security-Policy", apiCSP)
			}

			if c.Scheme() == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			return next(c)
		}
	}
}

// isDocsPath APIドキュメント配信パスかどうか
func isDocsPath(path string) bool {
	return strings.HasPrefix(path, "/swagger") || path == "/redoc" || path == "/openapi.yaml"
}
