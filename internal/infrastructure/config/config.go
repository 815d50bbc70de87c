package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"keyshop-server/internal/domain/purchase"
)

// Config アプリケーション全体の設定
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AdminAPI      AdminAPIConfig
	Shop          ShopConfig
	Telegram      TelegramConfig
	OpenTelemetry OpenTelemetryConfig
	Environment   string
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port         int
	GRPCPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig データベース設定
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
}

// RedisConfig Redis設定
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
	StockTTL time.Duration
}

// JWTConfig JWT設定
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminAPIConfig 運用者向けAPI設定
type AdminAPIConfig struct {
	Enabled    bool
	APIKey     string
	AllowedIPs []string
}

// ShopConfig 販売ルール設定
type ShopConfig struct {
	Prices              *purchase.PriceTable
	ReferralBonus       int64
	HistoryDefaultLimit int
	HistoryMaxLimit     int
	LedgerMaxRetries    int
	PendingTimeout      time.Duration
}

// TelegramConfig Telegram通知設定
type TelegramConfig struct {
	Enabled       bool
	BotToken      string
	NotifyTimeout time.Duration
}

// OpenTelemetryConfig OpenTelemetry設定
type OpenTelemetryConfig struct {
	Enabled         bool
	ServiceName     string
	ServiceVersion  string
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceExporter   string // "otlp", "none"
	MetricsExporter string // "otlp", "none"
}

const defaultPrices = "1-day:100,3-day:250,7-day:500,14-day:900,30-day:1800"

// Load 設定を読み込む
func Load() (*Config, error) {
	// .envファイルを読み込む（存在しない場合は無視）
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "development")

	prices, err := purchase.ParsePriceTable(getEnv("SHOP_PRICES", defaultPrices))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: SHOP_PRICES: %w", err)
	}

	port := getEnvAsInt("SERVER_PORT", 8080)

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         port,
			GRPCPort:     getEnvAsInt("GRPC_PORT", port+1),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvAsInt("DB_PORT", 3306),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			StockTTL: getEnvAsDuration("STOCK_CACHE_TTL", 30*time.Second),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", "keyshop-server"),
		},
		AdminAPI: AdminAPIConfig{
			Enabled:    getEnvAsBool("ADMIN_API_ENABLED", false),
			APIKey:     getEnv("ADMIN_API_KEY", ""),
			AllowedIPs: getEnvAsList("ADMIN_ALLOWED_IPS"),
		},
		Shop: ShopConfig{
			Prices:              prices,
			ReferralBonus:       int64(getEnvAsInt("REFERRAL_BONUS", 50)),
			HistoryDefaultLimit: getEnvAsInt("HISTORY_DEFAULT_LIMIT", 5),
			HistoryMaxLimit:     getEnvAsInt("HISTORY_MAX_LIMIT", 50),
			LedgerMaxRetries:    getEnvAsInt("LEDGER_MAX_RETRIES", 3),
			PendingTimeout:      getEnvAsDuration("PURCHASE_PENDING_TIMEOUT", 2*time.Minute),
		},
		Telegram: TelegramConfig{
			Enabled:       getEnvAsBool("TELEGRAM_ENABLED", false),
			BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
			NotifyTimeout: getEnvAsDuration("TELEGRAM_NOTIFY_TIMEOUT", 5*time.Second),
		},
		OpenTelemetry: OpenTelemetryConfig{
			Enabled:         getEnvAsBool("OTEL_ENABLED", true),
			ServiceName:     getEnv("OTEL_SERVICE_NAME", "keyshop-server"),
			ServiceVersion:  getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			OTLPInsecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			TraceExporter:   getEnv("OTEL_TRACES_EXPORTER", "otlp"),
			MetricsExporter: getEnv("OTEL_METRICS_EXPORTER", "otlp"),
		},
	}

	// 必須設定の検証
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate 設定の検証
func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminAPI.Enabled && c.AdminAPI.APIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required when ADMIN_API_ENABLED is true")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED is true")
	}
	if c.Shop.ReferralBonus <= 0 {
		return fmt.Errorf("REFERRAL_BONUS must be positive")
	}
	if c.Shop.HistoryDefaultLimit <= 0 || c.Shop.HistoryMaxLimit < c.Shop.HistoryDefaultLimit {
		return fmt.Errorf("HISTORY_DEFAULT_LIMIT must be positive and not exceed HISTORY_MAX_LIMIT")
	}
	return nil
}

// DSN データベース接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// MigrationDSN マイグレーション用の接続文字列を返す（複数文の実行を許可）
func (c *DatabaseConfig) MigrationDSN() string {
	return c.DSN() + "&multiStatements=true"
}

// Address Redis接続アドレスを返す
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool 環境変数を真偽値として取得
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList カンマ区切りの環境変数をリストとして取得
func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// getEnvAsDuration 環境変数を時間として取得
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
