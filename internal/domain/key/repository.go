package key

import (
	"context"
)

// StockEntry SKUごとの在庫数
type StockEntry struct {
	SKU       SKU
	Available int
}

// KeyRepository キー在庫リポジトリインターフェース
type KeyRepository interface {
	// Add 未使用キーを1件追加
	Add(ctx context.Context, k *Key) error

	// CountAvailable SKUの未使用キー数を取得
	CountAvailable(ctx context.Context, sku SKU) (int, error)

	// Allocate SKUの未使用キーを1件選び、同一操作で使用済みにする（在庫なしはErrOutOfStock）
	Allocate(ctx context.Context, sku SKU, userID string) (*Key, error)

	// FindByContent キー内容でキーを取得
	FindByContent(ctx context.Context, content string) (*Key, error)

	// FindByID キーIDでキーを取得
	FindByID(ctx context.Context, keyID string) (*Key, error)

	// Report 既知の全SKUの在庫数を取得
	Report(ctx context.Context) ([]StockEntry, error)
}
