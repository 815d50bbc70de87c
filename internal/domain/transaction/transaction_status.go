package transaction

import (
	"fmt"
)

// TransactionStatus トランザクションステータスを表す値オブジェクト
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed" // 完了
	TransactionStatusReversed  TransactionStatus = "reversed"  // 返金により取り消し済み
)

// NewTransactionStatus 新しいTransactionStatusを作成
func NewTransactionStatus(s string) (TransactionStatus, error) {
	ts := TransactionStatus(s)
	if !ts.Valid() {
		return "", fmt.Errorf("invalid transaction status: %s", s)
	}
	return ts, nil
}

// String 文字列表現を返す
func (ts TransactionStatus) String() string {
	return string(ts)
}

// Valid 有効なトランザクションステータスかどうかを返す
func (ts TransactionStatus) Valid() bool {
	switch ts {
	case TransactionStatusCompleted, TransactionStatusReversed:
		return true
	default:
		return false
	}
}
