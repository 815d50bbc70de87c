// Package cache Redisによるキャッシュ層
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"keyshop-server/internal/infrastructure/config"
)

// ErrCacheMiss キャッシュに存在しない
var ErrCacheMiss = errors.New("cache miss")

// Cache Redisキャッシュへのアクセスを提供
type Cache struct {
	client   *redis.Client
	stockTTL time.Duration
}

// New 新しいCacheを作成し、接続を確認する
func New(ctx context.Context, cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Address(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        10,
		MinIdleConns:    2,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, cfg.StockTTL), nil
}

// NewWithClient 既存のクライアントからCacheを作成
func NewWithClient(client *redis.Client, stockTTL time.Duration) *Cache {
	if stockTTL <= 0 {
		stockTTL = 30 * time.Second
	}
	return &Cache{client: client, stockTTL: stockTTL}
}

// Ping Redisへの疎通を確認
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close クライアントを閉じる
func (c *Cache) Close() error {
	return c.client.Close()
}
