package purchase

import (
	"errors"
	"fmt"

	"keyshop-server/internal/domain/errs"
)

var (
	// ErrPurchaseNotFound 購入記録が見つからないエラー
	ErrPurchaseNotFound = fmt.Errorf("%w: purchase not found", errs.ErrNotFound)
	// ErrRequestNotFound 購入リクエストが見つからないエラー
	ErrRequestNotFound = fmt.Errorf("%w: purchase request not found", errs.ErrNotFound)
	// ErrUnknownDuration 価格表に存在しない期間
	ErrUnknownDuration = fmt.Errorf("%w: unknown duration", errs.ErrValidation)
	// ErrInvalidPrice 価格が無効
	ErrInvalidPrice = fmt.Errorf("%w: invalid price", errs.ErrValidation)
	// ErrInvalidIdempotencyKey 冪等性キーが無効
	ErrInvalidIdempotencyKey = fmt.Errorf("%w: invalid idempotency key", errs.ErrValidation)
	// ErrIdempotencyKeyReused 冪等性キーが別のリクエスト内容で再利用された
	ErrIdempotencyKeyReused = fmt.Errorf("%w: idempotency key reused with different parameters", errs.ErrValidation)
	// ErrRequestInProgress 同じ冪等性キーのリクエストが処理中
	ErrRequestInProgress = errors.New("purchase request already in progress")
	// ErrPartialCommitFailure 引き落とし・キー確保後に記録が失敗（要突合）
	ErrPartialCommitFailure = errors.New("partial commit failure")
)

// PartialCommitError 引き落としとキー確保は完了したが後続処理が失敗した状態
// 運用者が突合できるよう関係するIDを保持する
type PartialCommitError struct {
	Stage  string // "allocate" / "record" / "refund" / "pending_timeout"
	UserID string
	KeyID  string
	Price  int64
	Err    error
}

// Error エラーメッセージを返す
func (e *PartialCommitError) Error() string {
	msg := fmt.Sprintf("partial commit failure at %s: user=%s key=%s price=%d", e.Stage, e.UserID, e.KeyID, e.Price)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 元のエラーを返す
func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// Is ErrPartialCommitFailureとして判定できるようにする
func (e *PartialCommitError) Is(target error) bool {
	return target == ErrPartialCommitFailure
}
