package purchase

import (
	"context"
)

// PurchaseRepository 購入記録リポジトリインターフェース
type PurchaseRepository interface {
	// Save 購入記録を追加
	Save(ctx context.Context, p *Purchase) error

	// FindByID 購入IDで購入記録を取得
	FindByID(ctx context.Context, purchaseID string) (*Purchase, error)

	// FindByUserID ユーザーの購入記録を新しい順に取得
	FindByUserID(ctx context.Context, userID string, limit int) ([]*Purchase, error)
}

// RequestRepository 購入リクエスト（冪等性キー）リポジトリインターフェース
type RequestRepository interface {
	// Create リクエストを作成。同じキーが既に存在する場合はfalseを返す
	Create(ctx context.Context, r *Request) (bool, error)

	// FindByKey 冪等性キーでリクエストを取得
	FindByKey(ctx context.Context, idempotencyKey string) (*Request, error)

	// Reclaim 失敗状態のリクエストを処理中に戻す。戻せた場合はtrueを返す
	Reclaim(ctx context.Context, idempotencyKey string) (bool, error)

	// Update ステータス・購入ID・失敗理由を更新
	Update(ctx context.Context, r *Request) error
}
