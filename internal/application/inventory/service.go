package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// StockInvalidator 在庫レポートのキャッシュを破棄する
type StockInvalidator interface {
	InvalidateStock(ctx context.Context) error
}

// InventoryApplicationService 在庫管理アプリケーションサービス
type InventoryApplicationService struct {
	keyRepo    key.KeyRepository
	prices     *purchase.PriceTable
	stockCache StockInvalidator
	logger     *otelinfra.Logger
	metrics    *otelinfra.Metrics
	tracer     trace.Tracer
	newID      func() string
}

// NewInventoryApplicationService 新しいInventoryApplicationServiceを作成
func NewInventoryApplicationService(
	keyRepo key.KeyRepository,
	prices *purchase.PriceTable,
	stockCache StockInvalidator,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *InventoryApplicationService {
	return &InventoryApplicationService{
		keyRepo:    keyRepo,
		prices:     prices,
		stockCache: stockCache,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("inventory-service"),
		newID: func() string {
			return ulid.Make().String()
		},
	}
}

// AddKey 未使用キーを1件追加
func (s *InventoryApplicationService) AddKey(ctx context.Context, item KeyItem) (*AddKeyResponse, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryApplicationService.AddKey")
	defer span.End()
	span.SetAttributes(
		attribute.String("game", item.Game),
		attribute.String("duration", item.Duration),
	)

	k, err := s.add(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to add key", err, map[string]interface{}{
			"game":     item.Game,
			"duration": item.Duration,
		})
		return nil, err
	}

	s.metrics.RecordKeysAdded(ctx, k.SKU().String(), 1)
	s.invalidateStock(ctx)
	s.logger.Info(ctx, "Key added", map[string]interface{}{
		"key_id": k.KeyID(),
		"sku":    k.SKU().String(),
	})

	span.SetStatus(otelcodes.Ok, "key added")
	return &AddKeyResponse{KeyID: k.KeyID(), Game: k.Game(), Duration: k.Duration()}, nil
}

// BulkAddKeys キーを一括追加する。1件ごとに独立して追加し、失敗した件数を数える
func (s *InventoryApplicationService) BulkAddKeys(ctx context.Context, items []KeyItem) (*BulkAddKeysResponse, error) {
	lines := make([]BulkLine, 0, len(items))
	for i, item := range items {
		lines = append(lines, BulkLine{Line: i + 1, Item: item})
	}
	return s.bulkAdd(ctx, lines, nil)
}

// BulkAddKeysFromText "game|duration|content" 形式のテキストからキーを一括追加する
func (s *InventoryApplicationService) BulkAddKeysFromText(ctx context.Context, text string) (*BulkAddKeysResponse, error) {
	lines, rejected := ParseBulkLines(text)
	return s.bulkAdd(ctx, lines, rejected)
}

func (s *InventoryApplicationService) bulkAdd(ctx context.Context, lines []BulkLine, rejected []BulkFailure) (*BulkAddKeysResponse, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryApplicationService.BulkAddKeys")
	defer span.End()
	span.SetAttributes(attribute.Int("lines", len(lines)+len(rejected)))

	resp := &BulkAddKeysResponse{
		KeyIDs:   make([]string, 0, len(lines)),
		Failures: append([]BulkFailure{}, rejected...),
	}
	added := make(map[string]int)

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			s.recordAdded(ctx, added)
			return nil, err
		}
		k, err := s.add(ctx, line.Item)
		if err != nil {
			resp.Failures = append(resp.Failures, BulkFailure{Line: line.Line, Reason: err.Error()})
			continue
		}
		resp.KeyIDs = append(resp.KeyIDs, k.KeyID())
		added[k.SKU().String()]++
	}

	sort.Slice(resp.Failures, func(i, j int) bool {
		return resp.Failures[i].Line < resp.Failures[j].Line
	})
	resp.Added = len(resp.KeyIDs)
	resp.Rejected = len(resp.Failures)
	s.recordAdded(ctx, added)
	if resp.Added > 0 {
		s.invalidateStock(ctx)
	}

	s.logger.Info(ctx, "Bulk add completed", map[string]interface{}{
		"added":    resp.Added,
		"rejected": resp.Rejected,
	})
	span.SetAttributes(
		attribute.Int("added", resp.Added),
		attribute.Int("rejected", resp.Rejected),
	)
	span.SetStatus(otelcodes.Ok, "bulk add completed")
	return resp, nil
}

// SearchKey キー内容でキーを検索
func (s *InventoryApplicationService) SearchKey(ctx context.Context, content string) (*KeyView, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryApplicationService.SearchKey")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		err := fmt.Errorf("%w: content is required", errs.ErrValidation)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	k, err := s.keyRepo.FindByContent(ctx, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if !errors.Is(err, key.ErrKeyNotFound) {
			s.logger.Error(ctx, "Failed to search key", err, nil)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("key_id", k.KeyID()))
	return &KeyView{
		KeyID:     k.KeyID(),
		Game:      k.Game(),
		Duration:  k.Duration(),
		Content:   k.Content(),
		Used:      k.IsUsed(),
		UsedBy:    k.UsedBy(),
		UsedAt:    k.UsedAt(),
		CreatedAt: k.CreatedAt(),
	}, nil
}

func (s *InventoryApplicationService) add(ctx context.Context, item KeyItem) (*key.Key, error) {
	sku, err := key.NewSKU(item.Game, item.Duration)
	if err != nil {
		return nil, err
	}
	if _, err := s.prices.Price(sku.Duration); err != nil {
		return nil, err
	}
	k, err := key.NewKey(s.newID(), sku, item.Content)
	if err != nil {
		return nil, err
	}
	if err := s.keyRepo.Add(ctx, k); err != nil {
		if errors.Is(err, key.ErrDuplicateKey) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store key: %w", err)
	}
	return k, nil
}

func (s *InventoryApplicationService) recordAdded(ctx context.Context, added map[string]int) {
	for sku, n := range added {
		s.metrics.RecordKeysAdded(ctx, sku, n)
	}
}

func (s *InventoryApplicationService) invalidateStock(ctx context.Context) {
	if s.stockCache == nil {
		return
	}
	if err := s.stockCache.InvalidateStock(ctx); err != nil {
		s.logger.Warn(ctx, "Failed to invalidate stock cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
