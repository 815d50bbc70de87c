package inventory

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// MockKeyRepository モックキーリポジトリ
type MockKeyRepository struct {
	mock.Mock
}

func (m *MockKeyRepository) Add(ctx context.Context, k *key.Key) error {
	return m.Called(ctx, k).Error(0)
}

func (m *MockKeyRepository) CountAvailable(ctx context.Context, sku key.SKU) (int, error) {
	args := m.Called(ctx, sku)
	return args.Int(0), args.Error(1)
}

func (m *MockKeyRepository) Allocate(ctx context.Context, sku key.SKU, userID string) (*key.Key, error) {
	args := m.Called(ctx, sku, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*key.Key), args.Error(1)
}

func (m *MockKeyRepository) FindByContent(ctx context.Context, content string) (*key.Key, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*key.Key), args.Error(1)
}

func (m *MockKeyRepository) FindByID(ctx context.Context, keyID string) (*key.Key, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*key.Key), args.Error(1)
}

func (m *MockKeyRepository) Report(ctx context.Context) ([]key.StockEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]key.StockEntry), args.Error(1)
}

// MockStockInvalidator モック在庫キャッシュ
type MockStockInvalidator struct {
	mock.Mock
}

func (m *MockStockInvalidator) InvalidateStock(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestService(t *testing.T, keyRepo *MockKeyRepository, cache *MockStockInvalidator) *InventoryApplicationService {
	t.Helper()
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)
	prices, err := purchase.NewPriceTable(purchase.DefaultPrices)
	require.NoError(t, err)
	logger := otelinfra.NewLoggerWithWriter(otel.Tracer("test"), io.Discard)

	svc := NewInventoryApplicationService(keyRepo, prices, cache, logger, metrics)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("key%d", n)
	}
	return svc
}

func TestInventoryApplicationService_AddKey(t *testing.T) {
	tests := []struct {
		name       string
		item       KeyItem
		setupMocks func(*MockKeyRepository, *MockStockInvalidator)
		want       *AddKeyResponse
		wantErr    error
	}{
		{
			name: "正常系: キーを追加",
			item: KeyItem{Game: "pubg", Duration: "1-day", Content: "ABCDEFG"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {
				kr.On("Add", mock.Anything, mock.MatchedBy(func(k *key.Key) bool {
					return k.KeyID() == "key1" && k.Content() == "ABCDEFG" && !k.IsUsed()
				})).Return(nil)
				c.On("InvalidateStock", mock.Anything).Return(nil)
			},
			want: &AddKeyResponse{KeyID: "key1", Game: "pubg", Duration: "1-day"},
		},
		{
			name: "正常系: キャッシュ破棄の失敗は無視",
			item: KeyItem{Game: "pubg", Duration: "1-day", Content: "ABCDEFG"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {
				kr.On("Add", mock.Anything, mock.Anything).Return(nil)
				c.On("InvalidateStock", mock.Anything).Return(fmt.Errorf("redis down"))
			},
			want: &AddKeyResponse{KeyID: "key1", Game: "pubg", Duration: "1-day"},
		},
		{
			name:       "異常系: 価格表にない期間",
			item:       KeyItem{Game: "pubg", Duration: "2-day", Content: "ABCDEFG"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {},
			wantErr:    purchase.ErrUnknownDuration,
		},
		{
			name:       "異常系: 内容が短い",
			item:       KeyItem{Game: "pubg", Duration: "1-day", Content: "ABC"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {},
			wantErr:    key.ErrInvalidContent,
		},
		{
			name:       "異常系: ゲームが空",
			item:       KeyItem{Game: "", Duration: "1-day", Content: "ABCDEFG"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {},
			wantErr:    errs.ErrValidation,
		},
		{
			name: "異常系: 重複したキー",
			item: KeyItem{Game: "pubg", Duration: "1-day", Content: "ABCDEFG"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {
				kr.On("Add", mock.Anything, mock.Anything).Return(key.ErrDuplicateKey)
			},
			wantErr: key.ErrDuplicateKey,
		},
		{
			name: "異常系: ストレージ障害",
			item: KeyItem{Game: "pubg", Duration: "1-day", Content: "ABCDEFG"},
			setupMocks: func(kr *MockKeyRepository, c *MockStockInvalidator) {
				kr.On("Add", mock.Anything, mock.Anything).Return(errs.ErrStorageUnavailable)
			},
			wantErr: errs.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr := new(MockKeyRepository)
			c := new(MockStockInvalidator)
			tt.setupMocks(kr, c)
			svc := newTestService(t, kr, c)

			got, err := svc.AddKey(context.Background(), tt.item)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				c.AssertNotCalled(t, "InvalidateStock", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			kr.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestInventoryApplicationService_BulkAddKeysFromText(t *testing.T) {
	kr := new(MockKeyRepository)
	c := new(MockStockInvalidator)
	kr.On("Add", mock.Anything, mock.MatchedBy(func(k *key.Key) bool {
		return k.Content() == "DUPLICATE"
	})).Return(key.ErrDuplicateKey)
	kr.On("Add", mock.Anything, mock.Anything).Return(nil)
	c.On("InvalidateStock", mock.Anything).Return(nil).Once()
	svc := newTestService(t, kr, c)

	text := "pubg|1-day|AAAAAAA\n" +
		"broken line\n" +
		"pubg|9-day|BBBBBBB\n" +
		"pubg|1-day|DUPLICATE\n" +
		"\n" +
		"fortnite|7-day|CCC|DDD\n"

	got, err := svc.BulkAddKeysFromText(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Added)
	assert.Equal(t, 3, got.Rejected)
	assert.Len(t, got.KeyIDs, 2)
	require.Len(t, got.Failures, 3)
	assert.Equal(t, 2, got.Failures[0].Line)
	assert.Equal(t, 3, got.Failures[1].Line)
	assert.Equal(t, 4, got.Failures[2].Line)
	c.AssertExpectations(t)
}

func TestInventoryApplicationService_BulkAddKeys(t *testing.T) {
	t.Run("正常系: ストレージ障害の行は拒否として数える", func(t *testing.T) {
		kr := new(MockKeyRepository)
		c := new(MockStockInvalidator)
		kr.On("Add", mock.Anything, mock.MatchedBy(func(k *key.Key) bool {
			return k.Content() == "FAILING"
		})).Return(errs.ErrStorageUnavailable)
		kr.On("Add", mock.Anything, mock.Anything).Return(nil)
		c.On("InvalidateStock", mock.Anything).Return(nil)
		svc := newTestService(t, kr, c)

		got, err := svc.BulkAddKeys(context.Background(), []KeyItem{
			{Game: "pubg", Duration: "1-day", Content: "FAILING"},
			{Game: "pubg", Duration: "1-day", Content: "WORKING"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, got.Added)
		assert.Equal(t, 1, got.Rejected)
		assert.Equal(t, []string{"key2"}, got.KeyIDs)
	})

	t.Run("正常系: 追加0件ならキャッシュを破棄しない", func(t *testing.T) {
		kr := new(MockKeyRepository)
		c := new(MockStockInvalidator)
		svc := newTestService(t, kr, c)

		got, err := svc.BulkAddKeys(context.Background(), []KeyItem{
			{Game: "pubg", Duration: "1-day", Content: "ABC"},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Added)
		assert.Equal(t, 1, got.Rejected)
		c.AssertNotCalled(t, "InvalidateStock", mock.Anything)
	})

	t.Run("異常系: キャンセル済みのコンテキスト", func(t *testing.T) {
		kr := new(MockKeyRepository)
		svc := newTestService(t, kr, new(MockStockInvalidator))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.BulkAddKeys(ctx, []KeyItem{{Game: "pubg", Duration: "1-day", Content: "ABCDEFG"}})
		assert.ErrorIs(t, err, context.Canceled)
		kr.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})
}

func TestInventoryApplicationService_SearchKey(t *testing.T) {
	usedBy := "user1"
	usedAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	found := key.Restore("key1", key.SKU{Game: "pubg", Duration: "1-day"}, "ABCDEFG", true, &usedBy, &usedAt, createdAt)

	t.Run("正常系: キーが見つかる", func(t *testing.T) {
		kr := new(MockKeyRepository)
		kr.On("FindByContent", mock.Anything, "ABCDEFG").Return(found, nil)
		svc := newTestService(t, kr, new(MockStockInvalidator))

		got, err := svc.SearchKey(context.Background(), "ABCDEFG")
		require.NoError(t, err)
		assert.Equal(t, &KeyView{
			KeyID:     "key1",
			Game:      "pubg",
			Duration:  "1-day",
			Content:   "ABCDEFG",
			Used:      true,
			UsedBy:    &usedBy,
			UsedAt:    &usedAt,
			CreatedAt: createdAt,
		}, got)
	})

	t.Run("異常系: 見つからない", func(t *testing.T) {
		kr := new(MockKeyRepository)
		kr.On("FindByContent", mock.Anything, "missing").Return(nil, key.ErrKeyNotFound)
		svc := newTestService(t, kr, new(MockStockInvalidator))

		got, err := svc.SearchKey(context.Background(), "missing")
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.Nil(t, got)
	})
}
