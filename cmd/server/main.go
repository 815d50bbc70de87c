package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	accountapp "keyshop-server/internal/application/account"
	authapp "keyshop-server/internal/application/auth"
	historyapp "keyshop-server/internal/application/history"
	inventoryapp "keyshop-server/internal/application/inventory"
	purchaseapp "keyshop-server/internal/application/purchase"
	referralapp "keyshop-server/internal/application/referral"
	stockapp "keyshop-server/internal/application/stock"
	"keyshop-server/internal/domain/notification"
	"keyshop-server/internal/domain/service"
	"keyshop-server/internal/infrastructure/cache"
	"keyshop-server/internal/infrastructure/config"
	"keyshop-server/internal/infrastructure/notification/telegram"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	"keyshop-server/internal/infrastructure/persistence/mysql"
	grpcserver "keyshop-server/internal/presentation/grpc"
	grpchandler "keyshop-server/internal/presentation/grpc/handler"
	"keyshop-server/internal/presentation/rest"
)

// stockCache Redis有効時は*cache.Cache、無効時はstockapp.NoopCache
type stockCache interface {
	stockapp.Cache
	purchaseapp.StockInvalidator
	inventoryapp.StockInvalidator
}

func main() {
	ctx := context.Background()

	// 設定の読み込み（.envがあれば先に読み込まれる）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// OpenTelemetryの初期化
	otelShutdown, err := otelinfra.Init(ctx, &cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shutdown OpenTelemetry: %v", err)
		}
	}()

	// ロガーとメトリクスの初期化
	logger := otelinfra.NewLogger(otel.Tracer("keyshop-server"))
	metrics, err := otelinfra.NewMetrics("keyshop-server")
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	// スキーマの適用
	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, cfg, logger); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// データベース接続の初期化
	db, err := mysql.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// リポジトリの初期化
	userRepo := mysql.NewUserRepository(db)
	keyRepo := mysql.NewKeyRepository(db)
	purchaseRepo := mysql.NewPurchaseRepository(db)
	requestRepo := mysql.NewPurchaseRequestRepository(db)
	transactionRepo := mysql.NewTransactionRepository(db)
	txManager := mysql.NewTransactionManager(db)

	// ドメインサービスの初期化
	ledger := service.NewLedgerService(userRepo, transactionRepo, txManager, cfg.Shop.LedgerMaxRetries)

	healthChecks := []rest.HealthCheck{{Name: "database", Check: db.HealthCheck}}

	// 在庫キャッシュの初期化
	var stock stockCache = stockapp.NoopCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		stock = redisCache
		healthChecks = append(healthChecks, rest.HealthCheck{Name: "redis", Check: redisCache.Ping})
	}

	// 通知の初期化
	var notifier notification.Notifier = notification.NoopNotifier{}
	var asyncNotifier *notification.AsyncNotifier
	if cfg.Telegram.Enabled {
		telegramNotifier, err := telegram.NewNotifier(cfg.Telegram.BotToken)
		if err != nil {
			log.Fatalf("Failed to create telegram notifier: %v", err)
		}
		asyncNotifier = notification.NewAsyncNotifier(telegramNotifier, cfg.Telegram.NotifyTimeout,
			func(ctx context.Context, userID string, err error) {
				logger.Warn(ctx, "Failed to send notification", map[string]interface{}{
					"user_id": userID,
					"error":   err.Error(),
				})
			})
		notifier = asyncNotifier
	}

	// アプリケーションサービスの初期化
	authService := authapp.NewAuthApplicationService(&cfg.JWT, logger)
	accountService := accountapp.NewAccountApplicationService(userRepo, ledger, notifier, logger, metrics)
	purchaseService := purchaseapp.NewPurchaseApplicationService(
		userRepo,
		keyRepo,
		purchaseRepo,
		requestRepo,
		ledger,
		cfg.Shop.Prices,
		stock,
		cfg.Shop.PendingTimeout,
		logger,
		metrics,
	)
	historyService := historyapp.NewHistoryApplicationService(
		userRepo,
		purchaseRepo,
		transactionRepo,
		logger,
		cfg.Shop.HistoryDefaultLimit,
		cfg.Shop.HistoryMaxLimit,
	)
	inventoryService := inventoryapp.NewInventoryApplicationService(keyRepo, cfg.Shop.Prices, stock, logger, metrics)
	stockService := stockapp.NewStockApplicationService(keyRepo, cfg.Shop.Prices, stock, logger, metrics)
	referralService := referralapp.NewReferralApplicationService(
		userRepo,
		ledger,
		notifier,
		cfg.Shop.ReferralBonus,
		logger,
		metrics,
	)

	// REST APIルーターの初期化
	router, err := rest.NewRouter(cfg, logger, metrics, rest.Services{
		Auth:      authService,
		Account:   accountService,
		Purchase:  purchaseService,
		History:   historyService,
		Inventory: inventoryService,
		Stock:     stockService,
		Referral:  referralService,
	}, healthChecks...)
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}

	// gRPCサーバーの初期化
	grpcSrv, err := grpcserver.NewServer(cfg, logger, metrics, grpchandler.Services{
		Account:   accountService,
		Purchase:  purchaseService,
		History:   historyService,
		Inventory: inventoryService,
		Stock:     stockService,
		Referral:  referralService,
	})
	if err != nil {
		log.Fatalf("Failed to create gRPC server: %v", err)
	}

	address := fmt.Sprintf(":%d", cfg.Server.Port)

	// グレースフルシャットダウンの設定
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "REST API server starting", map[string]interface{}{"address": address})
		if err := router.Start(address); err != nil {
			logger.Error(ctx, "REST API server error", err, nil)
			quit <- syscall.SIGTERM
		}
	}()

	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Error(ctx, "gRPC server error", err, nil)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info(ctx, "Shutting down servers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error shutting down REST API server", err, nil)
	}
	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error(ctx, "Error shutting down gRPC server", err, nil)
	}
	// 送信中の通知を待つ
	if asyncNotifier != nil {
		asyncNotifier.Wait()
	}

	logger.Info(ctx, "Servers stopped", nil)
}

// migrate 未適用のマイグレーションを適用
func migrate(ctx context.Context, cfg *config.Config, logger *otelinfra.Logger) error {
	migrator, err := mysql.NewMigrator(cfg.Database.MigrationDSN())
	if err != nil {
		return err
	}
	defer migrator.Close()

	applied, err := migrator.Up()
	if err != nil {
		return err
	}
	status, err := migrator.Status()
	if err != nil {
		return err
	}
	logger.Info(ctx, "Database schema ready", map[string]interface{}{
		"applied": applied,
		"version": status.Version,
	})
	return nil
}
