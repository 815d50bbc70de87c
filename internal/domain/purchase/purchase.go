package purchase

import (
	"time"

	"keyshop-server/internal/domain/key"
)

// Purchase 購入記録エンティティ（追記のみ）
type Purchase struct {
	purchaseID string
	userID     string
	keyID      string
	sku        key.SKU
	price      int64
	keyContent string // 履歴表示用（永続化層からの復元時のみ設定）
	createdAt  time.Time
}

// NewPurchase 新しいPurchaseエンティティを作成
func NewPurchase(purchaseID, userID, keyID string, sku key.SKU, price int64, createdAt time.Time) (*Purchase, error) {
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	return &Purchase{
		purchaseID: purchaseID,
		userID:     userID,
		keyID:      keyID,
		sku:        sku,
		price:      price,
		createdAt:  createdAt,
	}, nil
}

// PurchaseID 購入IDを返す
func (p *Purchase) PurchaseID() string {
	return p.purchaseID
}

// UserID ユーザーIDを返す
func (p *Purchase) UserID() string {
	return p.userID
}

// KeyID キーIDを返す
func (p *Purchase) KeyID() string {
	return p.keyID
}

// SKU SKUを返す
func (p *Purchase) SKU() key.SKU {
	return p.sku
}

// Price 価格を返す
func (p *Purchase) Price() int64 {
	return p.price
}

// CreatedAt 購入日時を返す
func (p *Purchase) CreatedAt() time.Time {
	return p.createdAt
}

// KeyContent 購入したキー内容を返す（未設定の場合は空文字）
func (p *Purchase) KeyContent() string {
	return p.keyContent
}

// SetKeyContent キー内容を設定
func (p *Purchase) SetKeyContent(content string) {
	p.keyContent = content
}

// MustNewPurchase テスト用ヘルパー: NewPurchaseを呼び出し、エラーが発生した場合はpanicする
func MustNewPurchase(purchaseID, userID, keyID string, sku key.SKU, price int64, createdAt time.Time) *Purchase {
	p, err := NewPurchase(purchaseID, userID, keyID, sku, price, createdAt)
	if err != nil {
		panic(err)
	}
	return p
}
