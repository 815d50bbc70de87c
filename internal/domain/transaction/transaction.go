package transaction

import (
	"errors"
	"regexp"
	"time"
)

var (
	// ErrInvalidTransactionID トランザクションIDが無効
	ErrInvalidTransactionID = errors.New("invalid transaction id")
	// ErrInvalidUserID ユーザーIDが無効
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidAmount 金額が無効
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrBalanceOutOfRange 残高が範囲外
	ErrBalanceOutOfRange = errors.New("balance out of range")
)

const (
	// MaxAmount 最大金額 (10兆)
	MaxAmount = 10_000_000_000_000
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,255}$`)

// Transaction 残高変動の仕訳エンティティ
type Transaction struct {
	transactionID   string
	userID          string
	transactionType TransactionType
	amount          int64 // 変動量の絶対値
	balanceBefore   int64
	balanceAfter    int64
	status          TransactionStatus
	referenceID     *string // 購入IDなど関連するID（オプション）
	metadata        map[string]interface{}
	createdAt       time.Time
}

// NewTransaction 新しいTransactionエンティティを作成
func NewTransaction(
	transactionID string,
	userID string,
	transactionType TransactionType,
	amount int64,
	balanceBefore int64,
	balanceAfter int64,
	status TransactionStatus,
	metadata map[string]interface{},
) (*Transaction, error) {
	if !idRegex.MatchString(transactionID) {
		return nil, ErrInvalidTransactionID
	}
	if !idRegex.MatchString(userID) {
		return nil, ErrInvalidUserID
	}
	if amount <= 0 || amount > MaxAmount {
		return nil, ErrInvalidAmount
	}
	if balanceBefore < 0 || balanceBefore > MaxAmount {
		return nil, ErrBalanceOutOfRange
	}
	if balanceAfter < 0 || balanceAfter > MaxAmount {
		return nil, ErrBalanceOutOfRange
	}
	if !transactionType.Valid() || !status.Valid() {
		return nil, ErrInvalidTransaction
	}

	return &Transaction{
		transactionID:   transactionID,
		userID:          userID,
		transactionType: transactionType,
		amount:          amount,
		balanceBefore:   balanceBefore,
		balanceAfter:    balanceAfter,
		status:          status,
		metadata:        metadata,
		createdAt:       time.Now(),
	}, nil
}

// TransactionID トランザクションIDを返す
func (t *Transaction) TransactionID() string {
	return t.transactionID
}

// UserID ユーザーIDを返す
func (t *Transaction) UserID() string {
	return t.userID
}

// TransactionType トランザクションタイプを返す
func (t *Transaction) TransactionType() TransactionType {
	return t.transactionType
}

// Amount 金額を返す
func (t *Transaction) Amount() int64 {
	return t.amount
}

// BalanceBefore 処理前の残高を返す
func (t *Transaction) BalanceBefore() int64 {
	return t.balanceBefore
}

// BalanceAfter 処理後の残高を返す
func (t *Transaction) BalanceAfter() int64 {
	return t.balanceAfter
}

// Status ステータスを返す
func (t *Transaction) Status() TransactionStatus {
	return t.status
}

// ReferenceID 関連IDを返す
func (t *Transaction) ReferenceID() *string {
	return t.referenceID
}

// SetReferenceID 関連IDを設定
func (t *Transaction) SetReferenceID(id string) {
	t.referenceID = &id
}

// Metadata メタデータを返す
func (t *Transaction) Metadata() map[string]interface{} {
	return t.metadata
}

// CreatedAt 作成日時を返す
func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

// SetCreatedAt 作成日時を設定（永続化層からの復元用）
func (t *Transaction) SetCreatedAt(at time.Time) {
	t.createdAt = at
}

// MustNewTransaction テスト用ヘルパー: NewTransactionを呼び出し、エラーが発生した場合はpanicする
func MustNewTransaction(
	transactionID string,
	userID string,
	transactionType TransactionType,
	amount int64,
	balanceBefore int64,
	balanceAfter int64,
	status TransactionStatus,
	metadata map[string]interface{},
) *Transaction {
	tx, err := NewTransaction(transactionID, userID, transactionType, amount, balanceBefore, balanceAfter, status, metadata)
	if err != nil {
		panic(err)
	}
	return tx
}
