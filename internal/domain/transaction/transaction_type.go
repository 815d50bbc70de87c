package transaction

import (
	"fmt"
)

// TransactionType 残高変動の種類を表す値オブジェクト
type TransactionType string

const (
	TransactionTypeGrant    TransactionType = "grant"    // 運用者による入金
	TransactionTypeConsume  TransactionType = "consume"  // 購入による引き落とし
	TransactionTypeRefund   TransactionType = "refund"   // 確保失敗時の返金
	TransactionTypeReferral TransactionType = "referral" // 紹介ボーナス
)

// NewTransactionType 新しいTransactionTypeを作成
func NewTransactionType(s string) (TransactionType, error) {
	tt := TransactionType(s)
	if !tt.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, s)
	}
	return tt, nil
}

// String 文字列表現を返す
func (tt TransactionType) String() string {
	return string(tt)
}

// Valid 有効なトランザクションタイプかどうかを返す
func (tt TransactionType) Valid() bool {
	switch tt {
	case TransactionTypeGrant, TransactionTypeConsume, TransactionTypeRefund, TransactionTypeReferral:
		return true
	default:
		return false
	}
}

// IsDebit 残高を減らす種類かどうかを返す
func (tt TransactionType) IsDebit() bool {
	return tt == TransactionTypeConsume
}
