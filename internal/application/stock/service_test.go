package stock

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	"keyshop-server/internal/infrastructure/cache"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// MockKeyRepository モックキーリポジトリ（Reportのみ使用）
type MockKeyRepository struct {
	mock.Mock
	key.KeyRepository
}

func (m *MockKeyRepository) Report(ctx context.Context) ([]key.StockEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]key.StockEntry), args.Error(1)
}

// MockCache モック在庫キャッシュ
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetStock(ctx context.Context) ([]key.StockEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]key.StockEntry), args.Error(1)
}

func (m *MockCache) SetStock(ctx context.Context, entries []key.StockEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockCache) InvalidateStock(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestService(t *testing.T, kr *MockKeyRepository, c Cache) *StockApplicationService {
	t.Helper()
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)
	prices, err := purchase.NewPriceTable(purchase.DefaultPrices)
	require.NoError(t, err)
	logger := otelinfra.NewLoggerWithWriter(otel.Tracer("test"), io.Discard)
	return NewStockApplicationService(kr, prices, c, logger, metrics)
}

func TestStockApplicationService_GetStockReport(t *testing.T) {
	stored := []key.StockEntry{
		{SKU: key.SKU{Game: "pubg", Duration: "7-day"}, Available: 1},
		{SKU: key.SKU{Game: "fortnite", Duration: "1-day"}, Available: 0},
		{SKU: key.SKU{Game: "pubg", Duration: "1-day"}, Available: 4},
	}
	wantItems := []StockItem{
		{Game: "fortnite", Duration: "1-day", Available: 0},
		{Game: "pubg", Duration: "1-day", Available: 4},
		{Game: "pubg", Duration: "7-day", Available: 1},
	}

	tests := []struct {
		name       string
		setupMocks func(*MockKeyRepository, *MockCache)
		wantCached bool
		wantErr    error
	}{
		{
			name: "正常系: キャッシュミス時はストアから集計して保存",
			setupMocks: func(kr *MockKeyRepository, c *MockCache) {
				c.On("GetStock", mock.Anything).Return(nil, cache.ErrCacheMiss)
				kr.On("Report", mock.Anything).Return(stored, nil)
				c.On("SetStock", mock.Anything, stored).Return(nil)
			},
		},
		{
			name: "正常系: キャッシュヒット",
			setupMocks: func(kr *MockKeyRepository, c *MockCache) {
				c.On("GetStock", mock.Anything).Return(stored, nil)
			},
			wantCached: true,
		},
		{
			name: "正常系: キャッシュ障害時もストアから集計",
			setupMocks: func(kr *MockKeyRepository, c *MockCache) {
				c.On("GetStock", mock.Anything).Return(nil, errors.New("redis down"))
				kr.On("Report", mock.Anything).Return(stored, nil)
				c.On("SetStock", mock.Anything, stored).Return(errors.New("redis down"))
			},
		},
		{
			name: "異常系: ストレージ障害",
			setupMocks: func(kr *MockKeyRepository, c *MockCache) {
				c.On("GetStock", mock.Anything).Return(nil, cache.ErrCacheMiss)
				kr.On("Report", mock.Anything).Return(nil, errs.ErrStorageUnavailable)
			},
			wantErr: errs.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr := new(MockKeyRepository)
			c := new(MockCache)
			tt.setupMocks(kr, c)
			svc := newTestService(t, kr, c)

			got, err := svc.GetStockReport(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, wantItems, got.Items)
			assert.Equal(t, 5, got.Total)
			assert.Equal(t, map[string]map[string]int{
				"fortnite": {"1-day": 0},
				"pubg":     {"1-day": 4, "7-day": 1},
			}, got.ByGame)
			assert.Equal(t, tt.wantCached, got.Cached)
			kr.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestStockApplicationService_NoopCache(t *testing.T) {
	kr := new(MockKeyRepository)
	kr.On("Report", mock.Anything).Return([]key.StockEntry{}, nil)
	svc := newTestService(t, kr, nil)

	got, err := svc.GetStockReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, 0, got.Total)
	assert.False(t, got.Cached)
}
