package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"keyshop-server/internal/infrastructure/config"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	"keyshop-server/internal/presentation/rest/handler"
	restmiddleware "keyshop-server/internal/presentation/rest/middleware"
)

// Services ルーターが公開するアプリケーションサービス
type Services struct {
	Auth      handler.TokenService
	Account   handler.AccountService
	Purchase  handler.PurchaseService
	History   handler.HistoryService
	Inventory handler.InventoryService
	Stock     handler.StockService
	Referral  handler.ReferralService
}

// HealthCheck ヘルスチェック対象（名前と疎通確認）
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Router REST APIルーター
type Router struct {
	echo *echo.Echo
}

// NewRouter 新しいRouterを作成
func NewRouter(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	services Services,
	checks ...HealthCheck,
) (*Router, error) {
	if services.Auth == nil || services.Account == nil || services.Purchase == nil || services.History == nil ||
		services.Inventory == nil || services.Stock == nil || services.Referral == nil {
		return nil, errors.New("rest: all services are required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// X-Forwarded-Forはプライベートネットワーク上のプロキシからのもののみ信頼する
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.HTTPErrorHandler = fallbackErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	setupMiddleware(e, logger, metrics)
	setupRoutes(e, cfg, logger, services, checks)
	SetupSwagger(e)

	return &Router{echo: e}, nil
}

// fallbackErrorHandler ErrorHandlerMiddlewareを通らなかったエラー（パニック等）の最終処理
func fallbackErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
	}
	_ = c.JSON(code, restmiddleware.ErrorResponse{
		Error:   http.StatusText(code),
		Message: http.StatusText(code),
	})
}

// setupMiddleware ミドルウェアを設定（外側から順）
func setupMiddleware(e *echo.Echo, logger *otelinfra.Logger, metrics *otelinfra.Metrics) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(restmiddleware.SecurityHeadersMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			restmiddleware.APIKeyHeader, handler.IdempotencyKeyHeader,
		},
	}))
	e.Use(middleware.BodyLimit("8M"))
	e.Use(restmiddleware.TracingMiddleware())
	if metrics != nil {
		e.Use(restmiddleware.MetricsMiddleware(metrics))
	}
	e.Use(restmiddleware.LoggingMiddleware(logger))
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
}

// setupRoutes ルーティングを設定
func setupRoutes(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, s Services, checks []HealthCheck) {
	authHandler := handler.NewAuthHandler(s.Auth)
	accountHandler := handler.NewAccountHandler(s.Account)
	purchaseHandler := handler.NewPurchaseHandler(s.Purchase)
	historyHandler := handler.NewHistoryHandler(s.History)
	inventoryHandler := handler.NewInventoryHandler(s.Inventory)
	stockHandler := handler.NewStockHandler(s.Stock)
	referralHandler := handler.NewReferralHandler(s.Referral)

	api := e.Group("/api/v1")

	// ユーザーAPI（JWT）
	user := api.Group("", restmiddleware.AuthMiddleware(&cfg.JWT, logger))
	user.GET("/me/profile", accountHandler.GetProfile)
	user.POST("/me/purchases", purchaseHandler.PurchaseKey)
	user.GET("/me/purchases", historyHandler.GetPurchaseHistory)
	user.POST("/me/referral", referralHandler.RegisterReferral)
	user.GET("/stock", stockHandler.GetStockReport)

	// 運用者API（APIキー）
	apiKey := restmiddleware.APIKeyMiddleware(&cfg.AdminAPI, logger)
	api.POST("/auth/token", authHandler.GenerateToken, apiKey)

	admin := api.Group("/admin", apiKey)
	admin.GET("/users/:user_id", accountHandler.GetProfileAdmin)
	admin.POST("/users/:user_id/funds", accountHandler.AddFunds)
	admin.POST("/users/:user_id/ban", accountHandler.BanUser)
	admin.DELETE("/users/:user_id/ban", accountHandler.UnbanUser)
	admin.GET("/users/:user_id/transactions", historyHandler.GetTransactionHistoryAdmin)
	admin.POST("/keys", inventoryHandler.AddKey)
	admin.POST("/keys/bulk", inventoryHandler.BulkAddKeys)
	admin.GET("/keys/search", inventoryHandler.SearchKey)
	admin.POST("/referrals", referralHandler.RegisterReferralAdmin)

	e.GET("/health", healthHandler(checks))
}

// healthHandler 依存先の疎通を確認し、1つでも失敗すれば503
func healthHandler(checks []HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[hc.Name] = "unavailable"
				continue
			}
			results[hc.Name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		return c.JSON(status, map[string]interface{}{
			"status": overall,
			"checks": results,
		})
	}
}

// Handler テスト等で直接リクエストを流すためのhttp.Handler
func (r *Router) Handler() http.Handler {
	return r.echo
}

// Start サーバーを起動（Shutdownで停止した場合はnil）
func (r *Router) Start(address string) error {
	if err := r.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 処理中のリクエストを待ってから停止
func (r *Router) Shutdown(ctx context.Context) error {
	return r.echo.Shutdown(ctx)
}
