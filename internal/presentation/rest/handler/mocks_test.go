package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel/trace/noop"

	accountapp "keyshop-server/internal/application/account"
	authapp "keyshop-server/internal/application/auth"
	historyapp "keyshop-server/internal/application/history"
	inventoryapp "keyshop-server/internal/application/inventory"
	purchaseapp "keyshop-server/internal/application/purchase"
	referralapp "keyshop-server/internal/application/referral"
	stockapp "keyshop-server/internal/application/stock"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
	restmiddleware "keyshop-server/internal/presentation/rest/middleware"
)

// MockTokenService モックトークン発行サービス
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(ctx context.Context, req *authapp.GenerateTokenRequest) (*authapp.GenerateTokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authapp.GenerateTokenResponse), args.Error(1)
}

// MockAccountService モックアカウントサービス
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetProfile(ctx context.Context, userID string) (*accountapp.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountapp.Profile), args.Error(1)
}

func (m *MockAccountService) AddFunds(ctx context.Context, req *accountapp.AddFundsRequest) (*accountapp.AddFundsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountapp.AddFundsResponse), args.Error(1)
}

func (m *MockAccountService) BanUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAccountService) UnbanUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// MockPurchaseService モック購入サービス
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) PurchaseKey(ctx context.Context, req *purchaseapp.PurchaseKeyRequest) (*purchaseapp.PurchaseKeyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchaseapp.PurchaseKeyResponse), args.Error(1)
}

// MockHistoryService モック履歴サービス
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) GetHistory(ctx context.Context, req *historyapp.GetHistoryRequest) (*historyapp.GetHistoryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*historyapp.GetHistoryResponse), args.Error(1)
}

func (m *MockHistoryService) GetBalanceHistory(ctx context.Context, req *historyapp.GetBalanceHistoryRequest) (*historyapp.GetBalanceHistoryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*historyapp.GetBalanceHistoryResponse), args.Error(1)
}

// MockInventoryService モック在庫キーサービス
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) AddKey(ctx context.Context, item inventoryapp.KeyItem) (*inventoryapp.AddKeyResponse, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.AddKeyResponse), args.Error(1)
}

func (m *MockInventoryService) BulkAddKeys(ctx context.Context, items []inventoryapp.KeyItem) (*inventoryapp.BulkAddKeysResponse, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.BulkAddKeysResponse), args.Error(1)
}

func (m *MockInventoryService) BulkAddKeysFromText(ctx context.Context, text string) (*inventoryapp.BulkAddKeysResponse, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.BulkAddKeysResponse), args.Error(1)
}

func (m *MockInventoryService) SearchKey(ctx context.Context, content string) (*inventoryapp.KeyView, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.KeyView), args.Error(1)
}

// MockStockService モック在庫レポートサービス
type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) GetStockReport(ctx context.Context) (*stockapp.StockReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stockapp.StockReport), args.Error(1)
}

// MockReferralService モック紹介サービス
type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) RegisterReferral(ctx context.Context, req *referralapp.RegisterReferralRequest) (*referralapp.RegisterReferralResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referralapp.RegisterReferralResponse), args.Error(1)
}

// newTestEcho エラーハンドリングミドルウェア付きのEcho
func newTestEcho() *echo.Echo {
	e := echo.New()
	logger := otelinfra.NewLoggerWithWriter(noop.NewTracerProvider().Tracer("test"), io.Discard)
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
	return e
}

// withUser 認証済みユーザーIDを設定するテスト用ミドルウェア
func withUser(userID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID != "" {
				c.Set(restmiddleware.UserIDKey, userID)
			}
			return next(c)
		}
	}
}

// doRequest リクエストを実行してレコーダーを返す
func doRequest(e *echo.Echo, method, path, contentType, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

