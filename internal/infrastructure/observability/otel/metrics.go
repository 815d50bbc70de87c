package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics メトリクス定義
type Metrics struct {
	// 購入の結果別件数
	PurchaseCount metric.Int64Counter

	// 残高変更の種類別件数
	BalanceAdjustmentCount metric.Int64Counter

	// 返金による補償の件数
	CompensationCount metric.Int64Counter

	// 部分コミット（要突合）の件数
	PartialCommitCount metric.Int64Counter

	// 追加されたキー数
	KeysAddedCount metric.Int64Counter

	// SKUごとの在庫数
	StockAvailable metric.Int64Gauge

	// 残高の分布
	UserBalance metric.Int64Histogram

	// リクエスト数
	RequestCount metric.Int64Counter

	// レスポンス時間
	ResponseTime metric.Float64Histogram

	// エラー数
	ErrorCount metric.Int64Counter
}

// NewMetrics 新しいMetricsを作成
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.PurchaseCount, "purchases_total", "Total number of purchase attempts by outcome"},
		{&m.BalanceAdjustmentCount, "balance_adjustments_total", "Total number of balance adjustments by type"},
		{&m.CompensationCount, "compensations_total", "Total number of refunds issued after a failed allocation"},
		{&m.PartialCommitCount, "partial_commits_total", "Total number of purchases requiring reconciliation"},
		{&m.KeysAddedCount, "keys_added_total", "Total number of keys added to inventory"},
		{&m.RequestCount, "requests_total", "Total number of requests"},
		{&m.ErrorCount, "errors_total", "Total number of errors"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.StockAvailable, err = meter.Int64Gauge(
		"stock_available",
		metric.WithDescription("Available keys per SKU"),
	); err != nil {
		return nil, err
	}

	if m.UserBalance, err = meter.Int64Histogram(
		"user_balance",
		metric.WithDescription("User balance after an adjustment"),
	); err != nil {
		return nil, err
	}

	if m.ResponseTime, err = meter.Float64Histogram(
		"response_time_seconds",
		metric.WithDescription("Response time in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPurchase 購入の結果を記録
func (m *Metrics) RecordPurchase(ctx context.Context, sku, status string) {
	m.PurchaseCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("sku", sku),
			attribute.String("status", status),
		),
	)
}

// RecordBalanceAdjustment 残高変更を記録
func (m *Metrics) RecordBalanceAdjustment(ctx context.Context, transactionType string, balanceAfter int64) {
	m.BalanceAdjustmentCount.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transaction_type", transactionType)),
	)
	m.UserBalance.Record(ctx, balanceAfter)
}

// RecordCompensation 返金による補償を記録
func (m *Metrics) RecordCompensation(ctx context.Context, sku string) {
	m.CompensationCount.Add(ctx, 1, metric.WithAttributes(attribute.String("sku", sku)))
}

// RecordPartialCommit 部分コミットを記録
func (m *Metrics) RecordPartialCommit(ctx context.Context, stage string) {
	m.PartialCommitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordKeysAdded キー追加数を記録
func (m *Metrics) RecordKeysAdded(ctx context.Context, sku string, count int) {
	m.KeysAddedCount.Add(ctx, int64(count), metric.WithAttributes(attribute.String("sku", sku)))
}

// RecordStock SKUの在庫数を記録
func (m *Metrics) RecordStock(ctx context.Context, sku string, available int) {
	m.StockAvailable.Record(ctx, int64(available), metric.WithAttributes(attribute.String("sku", sku)))
}

// RecordRequest リクエストを記録
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	m.RequestCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordResponseTime レスポンス時間を記録
func (m *Metrics) RecordResponseTime(ctx context.Context, method, path string, duration float64) {
	m.ResponseTime.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordError エラーを記録
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.ErrorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errorType),
		),
	)
}
