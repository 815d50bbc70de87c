package key

import (
	"strings"
	"time"
)

// MinContentLength キー内容の最小長（この長さ以下は拒否）
const MinContentLength = 5

// Key 販売用の使い切りキーエンティティ
type Key struct {
	keyID     string
	sku       SKU
	content   string
	used      bool
	usedBy    *string
	usedAt    *time.Time
	createdAt time.Time
}

// NewKey 新しい未使用のKeyエンティティを作成
func NewKey(keyID string, sku SKU, content string) (*Key, error) {
	if keyID == "" {
		return nil, ErrInvalidKeyID
	}
	content = strings.TrimSpace(content)
	if len(content) <= MinContentLength {
		return nil, ErrInvalidContent
	}
	return &Key{
		keyID:     keyID,
		sku:       sku,
		content:   content,
		createdAt: time.Now(),
	}, nil
}

// Restore 永続化層からKeyエンティティを復元
func Restore(keyID string, sku SKU, content string, used bool, usedBy *string, usedAt *time.Time, createdAt time.Time) *Key {
	return &Key{
		keyID:     keyID,
		sku:       sku,
		content:   content,
		used:      used,
		usedBy:    usedBy,
		usedAt:    usedAt,
		createdAt: createdAt,
	}
}

// KeyID キーIDを返す
func (k *Key) KeyID() string {
	return k.keyID
}

// SKU SKUを返す
func (k *Key) SKU() SKU {
	return k.sku
}

// Game ゲーム名を返す
func (k *Key) Game() string {
	return k.sku.Game
}

// Duration 期間を返す
func (k *Key) Duration() string {
	return k.sku.Duration
}

// Content キー内容を返す
func (k *Key) Content() string {
	return k.content
}

// IsUsed 使用済みかどうかを返す
func (k *Key) IsUsed() bool {
	return k.used
}

// UsedBy 使用したユーザーIDを返す
func (k *Key) UsedBy() *string {
	return k.usedBy
}

// UsedAt 使用日時を返す
func (k *Key) UsedAt() *time.Time {
	return k.usedAt
}

// CreatedAt 作成日時を返す
func (k *Key) CreatedAt() time.Time {
	return k.createdAt
}

// Claim キーを使用済みにする。一度使用済みになったキーは戻らない
func (k *Key) Claim(userID string, at time.Time) error {
	if k.used {
		return ErrAlreadyUsed
	}
	k.used = true
	k.usedBy = &userID
	k.usedAt = &at
	return nil
}

// MustNewKey テスト用ヘルパー: NewKeyを呼び出し、エラーが発生した場合はpanicする
func MustNewKey(keyID string, sku SKU, content string) *Key {
	k, err := NewKey(keyID, sku, content)
	if err != nil {
		panic(err)
	}
	return k
}
