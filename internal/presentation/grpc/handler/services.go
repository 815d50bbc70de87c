package handler

import (
	"context"

	accountapp "keyshop-server/internal/application/account"
	historyapp "keyshop-server/internal/application/history"
	inventoryapp "keyshop-server/internal/application/inventory"
	purchaseapp "keyshop-server/internal/application/purchase"
	referralapp "keyshop-server/internal/application/referral"
	stockapp "keyshop-server/internal/application/stock"
)

// AccountService 残高・BAN管理
type AccountService interface {
	GetProfile(ctx context.Context, userID string) (*accountapp.Profile, error)
	AddFunds(ctx context.Context, req *accountapp.AddFundsRequest) (*accountapp.AddFundsResponse, error)
	BanUser(ctx context.Context, userID string) error
	UnbanUser(ctx context.Context, userID string) error
}

// PurchaseService キー購入
type PurchaseService interface {
	PurchaseKey(ctx context.Context, req *purchaseapp.PurchaseKeyRequest) (*purchaseapp.PurchaseKeyResponse, error)
}

// HistoryService 購入履歴
type HistoryService interface {
	GetHistory(ctx context.Context, req *historyapp.GetHistoryRequest) (*historyapp.GetHistoryResponse, error)
}

// InventoryService 在庫キーの登録・検索
type InventoryService interface {
	AddKey(ctx context.Context, item inventoryapp.KeyItem) (*inventoryapp.AddKeyResponse, error)
	BulkAddKeys(ctx context.Context, items []inventoryapp.KeyItem) (*inventoryapp.BulkAddKeysResponse, error)
	BulkAddKeysFromText(ctx context.Context, text string) (*inventoryapp.BulkAddKeysResponse, error)
	SearchKey(ctx context.Context, content string) (*inventoryapp.KeyView, error)
}

// StockService 在庫レポート
type StockService interface {
	GetStockReport(ctx context.Context) (*stockapp.StockReport, error)
}

// ReferralService 紹介登録
type ReferralService interface {
	RegisterReferral(ctx context.Context, req *referralapp.RegisterReferralRequest) (*referralapp.RegisterReferralResponse, error)
}

// Services gRPCハンドラーが使うアプリケーションサービス
type Services struct {
	Account   AccountService
	Purchase  PurchaseService
	History   HistoryService
	Inventory InventoryService
	Stock     StockService
	Referral  ReferralService
}
