package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	"keyshop-server/internal/infrastructure/cache"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// Cache 在庫レポートのキャッシュ
type Cache interface {
	GetStock(ctx context.Context) ([]key.StockEntry, error)
	SetStock(ctx context.Context, entries []key.StockEntry) error
	InvalidateStock(ctx context.Context) error
}

// NoopCache 常にミスするCache（Redis無効時に使用）
type NoopCache struct{}

// GetStock 常にcache.ErrCacheMissを返す
func (NoopCache) GetStock(ctx context.Context) ([]key.StockEntry, error) {
	return nil, cache.ErrCacheMiss
}

// SetStock 何もしない
func (NoopCache) SetStock(ctx context.Context, entries []key.StockEntry) error {
	return nil
}

// InvalidateStock 何もしない
func (NoopCache) InvalidateStock(ctx context.Context) error {
	return nil
}

// StockApplicationService 在庫レポートアプリケーションサービス
type StockApplicationService struct {
	keyRepo key.KeyRepository
	prices  *purchase.PriceTable
	cache   Cache
	logger  *otelinfra.Logger
	metrics *otelinfra.Metrics
	tracer  trace.Tracer
}

// NewStockApplicationService 新しいStockApplicationServiceを作成
func NewStockApplicationService(
	keyRepo key.KeyRepository,
	prices *purchase.PriceTable,
	stockCache Cache,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *StockApplicationService {
	if stockCache == nil {
		stockCache = NoopCache{}
	}
	return &StockApplicationService{
		keyRepo: keyRepo,
		prices:  prices,
		cache:   stockCache,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("stock-service"),
	}
}

// GetStockReport 全SKUの在庫数を取得。キャッシュが使えない場合はストアから集計する
func (s *StockApplicationService) GetStockReport(ctx context.Context) (*StockReport, error) {
	ctx, span := s.tracer.Start(ctx, "StockApplicationService.GetStockReport")
	defer span.End()

	entries, err := s.cache.GetStock(ctx)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		report := s.build(entries)
		report.Cached = true
		return report, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn(ctx, "Stock cache unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	entries, err = s.keyRepo.Report(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to build stock report", err, nil)
		return nil, fmt.Errorf("failed to build stock report: %w", err)
	}

	for _, e := range entries {
		s.metrics.RecordStock(ctx, e.SKU.String(), e.Available)
	}
	if err := s.cache.SetStock(ctx, entries); err != nil {
		s.logger.Warn(ctx, "Failed to cache stock report", map[string]interface{}{
			"error": err.Error(),
		})
	}

	span.SetStatus(otelcodes.Ok, "stock report built")
	return s.build(entries), nil
}

// build ゲーム名、価格表の期間順で並べたレポートを作る
func (s *StockApplicationService) build(entries []key.StockEntry) *StockReport {
	order := make(map[string]int)
	for i, d := range s.prices.Durations() {
		order[d] = i
	}
	rank := func(d string) int {
		if i, ok := order[d]; ok {
			return i
		}
		return len(order)
	}

	items := make([]StockItem, 0, len(entries))
	byGame := make(map[string]map[string]int)
	total := 0
	for _, e := range entries {
		items = append(items, StockItem{Game: e.SKU.Game, Duration: e.SKU.Duration, Available: e.Available})
		if byGame[e.SKU.Game] == nil {
			byGame[e.SKU.Game] = make(map[string]int)
		}
		byGame[e.SKU.Game][e.SKU.Duration] = e.Available
		total += e.Available
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Game != items[j].Game {
			return items[i].Game < items[j].Game
		}
		ri, rj := rank(items[i].Duration), rank(items[j].Duration)
		if ri != rj {
			return ri < rj
		}
		return items[i].Duration < items[j].Duration
	})

	return &StockReport{Items: items, ByGame: byGame, Total: total}
}
