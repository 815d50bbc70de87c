package history

import (
	"time"

	"keyshop-server/internal/domain/transaction"
)

// GetHistoryRequest 購入履歴取得リクエスト
type GetHistoryRequest struct {
	UserID string
	Limit  int // 0以下は既定値
}

// PurchaseView 購入履歴1件
type PurchaseView struct {
	PurchaseID string
	KeyID      string
	Game       string
	Duration   string
	Price      int64
	KeyContent string
	CreatedAt  time.Time
}

// GetHistoryResponse 購入履歴取得レスポンス（新しい順）
type GetHistoryResponse struct {
	UserID    string
	Purchases []PurchaseView
	Limit     int
}

// GetBalanceHistoryRequest 残高変動履歴取得リクエスト
type GetBalanceHistoryRequest struct {
	UserID          string
	Limit           int
	Offset          int
	TransactionType string // optional: "grant", "consume", "refund", "referral"
}

// GetBalanceHistoryResponse 残高変動履歴取得レスポンス
type GetBalanceHistoryResponse struct {
	Transactions []*transaction.Transaction
	Limit        int
	Offset       int
}
