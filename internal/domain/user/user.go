package user

import (
	"regexp"
	"time"
)

const (
	// MaxBalance 最大残高 (10兆)
	MaxBalance = 10_000_000_000_000
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.\@]{1,64}$`)

// ValidateUserID ユーザーIDの形式を検証
func ValidateUserID(userID string) error {
	if !userIDRegex.MatchString(userID) {
		return ErrInvalidUserID
	}
	return nil
}

// User ユーザーエンティティ（残高・BANフラグ・紹介者を保持）
type User struct {
	userID     string
	balance    int64 // 整数値（小数点なし）、マイナス値は許可しない
	banned     bool
	referredBy *string
	version    int // 楽観的ロック用
	createdAt  time.Time
}

// NewUser 新しいUserエンティティを作成
func NewUser(userID string, balance int64, banned bool, referredBy *string, version int) (*User, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	if balance < 0 || balance > MaxBalance {
		return nil, ErrBalanceOutOfRange
	}
	if referredBy != nil && *referredBy == userID {
		return nil, ErrSelfReferral
	}
	return &User{
		userID:     userID,
		balance:    balance,
		banned:     banned,
		referredBy: referredBy,
		version:    version,
		createdAt:  time.Now(),
	}, nil
}

// UserID ユーザーIDを返す
func (u *User) UserID() string {
	return u.userID
}

// Balance 残高を返す
func (u *User) Balance() int64 {
	return u.balance
}

// IsBanned BAN済みかどうかを返す
func (u *User) IsBanned() bool {
	return u.banned
}

// ReferredBy 紹介者IDを返す（未設定の場合はnil）
func (u *User) ReferredBy() *string {
	return u.referredBy
}

// Version バージョンを返す（楽観的ロック用）
func (u *User) Version() int {
	return u.version
}

// CreatedAt 作成日時を返す
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// SetCreatedAt 作成日時を設定（永続化層からの復元用）
func (u *User) SetCreatedAt(t time.Time) {
	u.createdAt = t
}

// EnsureActive BAN済みの場合はErrBannedを返す
func (u *User) EnsureActive() error {
	if u.banned {
		return ErrBanned
	}
	return nil
}

// CanAfford 指定金額を支払えるかを返す
func (u *User) CanAfford(amount int64) bool {
	return u.balance >= amount
}

// Adjust 残高をdelta分だけ変更する。結果がマイナスになる場合はErrInsufficientFunds
// バージョンは保存時に永続化層が進める
func (u *User) Adjust(delta int64) error {
	if delta == 0 {
		return ErrInvalidAmount
	}
	if delta > MaxBalance || delta < -MaxBalance {
		return ErrInvalidAmount
	}
	next := u.balance + delta
	if next < 0 {
		return ErrInsufficientFunds
	}
	if next > MaxBalance {
		return ErrBalanceOutOfRange
	}
	u.balance = next
	return nil
}

// MustNewUser テスト用ヘルパー: NewUserを呼び出し、エラーが発生した場合はpanicする
func MustNewUser(userID string, balance int64, banned bool, referredBy *string, version int) *User {
	u, err := NewUser(userID, balance, banned, referredBy, version)
	if err != nil {
		panic(err)
	}
	return u
}
