package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"keyshop-server/internal/domain/key"
)

const stockReportKey = "stock:report"

type cachedStockEntry struct {
	Game      string `json:"game"`
	Duration  string `json:"duration"`
	Available int    `json:"available"`
}

// GetStock キャッシュ済みの在庫レポートを取得。存在しない場合はErrCacheMiss
func (c *Cache) GetStock(ctx context.Context) ([]key.StockEntry, error) {
	data, err := c.client.Get(ctx, stockReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeStock(data)
}

// SetStock 在庫レポートをTTL付きで保存
func (c *Cache) SetStock(ctx context.Context, entries []key.StockEntry) error {
	data, err := encodeStock(entries)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, stockReportKey, data, c.stockTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateStock 在庫レポートのキャッシュを破棄
func (c *Cache) InvalidateStock(ctx context.Context) error {
	if err := c.client.Del(ctx, stockReportKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func encodeStock(entries []key.StockEntry) ([]byte, error) {
	cached := make([]cachedStockEntry, 0, len(entries))
	for _, e := range entries {
		cached = append(cached, cachedStockEntry{Game: e.SKU.Game, Duration: e.SKU.Duration, Available: e.Available})
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stock: %w", err)
	}
	return data, nil
}

func decodeStock(data []byte) ([]key.StockEntry, error) {
	var cached []cachedStockEntry
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode stock: %w", err)
	}
	entries := make([]key.StockEntry, 0, len(cached))
	for _, c := range cached {
		entries = append(entries, key.StockEntry{SKU: key.SKU{Game: c.Game, Duration: c.Duration}, Available: c.Available})
	}
	return entries, nil
}
