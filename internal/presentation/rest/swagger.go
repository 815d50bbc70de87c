package rest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"keyshop-server/internal/presentation/openapi"
)

// SetupSwagger Swagger UI / ReDoc統合を設定
func SetupSwagger(e *echo.Echo) {
	e.GET("/openapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/x-yaml", openapi.Spec)
	})

	// Swagger UIは埋め込みの/openapi.yamlを読む
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(
		echoSwagger.URL("/openapi.yaml"),
	))

	// ReDoc用のHTML
	e.GET("/redoc", func(c echo.Context) error {
		return c.HTML(http.StatusOK, `
<!DOCTYPE html>
<html>
<head>
	<title>Key Shop API - ReDoc</title>
	<meta charset="utf-8"/>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { margin: 0; padding: 0; }
	</style>
</head>
<body>
	<redoc spec-url="/openapi.yaml"></redoc>
	<script src="https://cdn.jsdelivr.net/npm/redoc@2.1.5/bundles/redoc.standalone.js"></script>
</body>
</html>
		`)
	})
}
