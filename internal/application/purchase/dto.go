package purchase

import "time"

// PurchaseKeyRequest キー購入リクエスト
type PurchaseKeyRequest struct {
	UserID         string
	Game           string
	Duration       string
	IdempotencyKey string // optional
}

// PurchaseKeyResponse キー購入レスポンス
type PurchaseKeyResponse struct {
	PurchaseID   string
	KeyID        string
	KeyContent   string
	Game         string
	Duration     string
	Price        int64
	BalanceAfter int64
	CreatedAt    time.Time
	Replayed     bool // 冪等性キーによる再送で、保存済みの結果を返した
}
