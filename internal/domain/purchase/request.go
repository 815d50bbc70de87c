package purchase

import (
	"regexp"
	"strings"
	"time"

	"keyshop-server/internal/domain/key"
)

// maxFailureReasonLength 失敗理由の最大長
const maxFailureReasonLength = 255

var idempotencyKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]{8,128}$`)

// RequestStatus 購入リクエストのステータス
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"   // 処理中
	RequestStatusCompleted RequestStatus = "completed" // 完了
	RequestStatusFailed    RequestStatus = "failed"    // 失敗（正味の変更なし）
	RequestStatusPartial   RequestStatus = "partial"   // 部分コミット（要突合）
)

// String 文字列表現を返す
func (s RequestStatus) String() string {
	return string(s)
}

// Valid 有効なステータスかどうかを返す
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusCompleted, RequestStatusFailed, RequestStatusPartial:
		return true
	default:
		return false
	}
}

// Request 冪等性キー付きの購入リクエストエンティティ
type Request struct {
	idempotencyKey string
	userID         string
	sku            key.SKU
	status         RequestStatus
	purchaseID     *string
	failureReason  *string
	createdAt      time.Time
	updatedAt      time.Time
}

// NewRequest 新しい処理中のRequestエンティティを作成
func NewRequest(idempotencyKey, userID string, sku key.SKU) (*Request, error) {
	if !idempotencyKeyRegex.MatchString(idempotencyKey) {
		return nil, ErrInvalidIdempotencyKey
	}
	now := time.Now()
	return &Request{
		idempotencyKey: idempotencyKey,
		userID:         userID,
		sku:            sku,
		status:         RequestStatusPending,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// RestoreRequest 永続化層からRequestエンティティを復元
func RestoreRequest(idempotencyKey, userID string, sku key.SKU, status RequestStatus, purchaseID, failureReason *string, createdAt, updatedAt time.Time) *Request {
	return &Request{
		idempotencyKey: idempotencyKey,
		userID:         userID,
		sku:            sku,
		status:         status,
		purchaseID:     purchaseID,
		failureReason:  failureReason,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// IdempotencyKey 冪等性キーを返す
func (r *Request) IdempotencyKey() string {
	return r.idempotencyKey
}

// UserID ユーザーIDを返す
func (r *Request) UserID() string {
	return r.userID
}

// SKU SKUを返す
func (r *Request) SKU() key.SKU {
	return r.sku
}

// Status ステータスを返す
func (r *Request) Status() RequestStatus {
	return r.status
}

// PurchaseID 完了時の購入IDを返す
func (r *Request) PurchaseID() *string {
	return r.purchaseID
}

// FailureReason 失敗理由を返す
func (r *Request) FailureReason() *string {
	return r.failureReason
}

// CreatedAt 作成日時を返す
func (r *Request) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt 更新日時を返す
func (r *Request) UpdatedAt() time.Time {
	return r.updatedAt
}

// Matches 同じユーザー・SKUのリクエストかどうかを返す
func (r *Request) Matches(userID string, sku key.SKU) bool {
	return r.userID == userID && r.sku == sku
}

// IsStale 処理中のまま指定時間を超過しているかを返す
func (r *Request) IsStale(now time.Time, timeout time.Duration) bool {
	return r.status == RequestStatusPending && now.Sub(r.updatedAt) > timeout
}

// Complete 完了状態にする
func (r *Request) Complete(purchaseID string) {
	r.status = RequestStatusCompleted
	r.purchaseID = &purchaseID
	r.failureReason = nil
	r.updatedAt = time.Now()
}

// Fail 失敗状態にする
func (r *Request) Fail(reason string) {
	r.status = RequestStatusFailed
	reason = truncateReason(reason)
	r.failureReason = &reason
	r.updatedAt = time.Now()
}

// MarkPartial 部分コミット状態にする
func (r *Request) MarkPartial(reason string) {
	r.status = RequestStatusPartial
	reason = truncateReason(reason)
	r.failureReason = &reason
	r.updatedAt = time.Now()
}

func truncateReason(reason string) string {
	if len(reason) <= maxFailureReasonLength {
		return reason
	}
	return strings.ToValidUTF8(reason[:maxFailureReasonLength], "")
}
