package user

import (
	"context"
)

// UserRepository ユーザーリポジトリインターフェース
type UserRepository interface {
	// GetOrCreate ユーザーを取得し、存在しなければ残高0で作成（同時作成でも1行に収束）
	GetOrCreate(ctx context.Context, userID string) (*User, error)

	// FindByID ユーザーIDでユーザーを取得
	FindByID(ctx context.Context, userID string) (*User, error)

	// SaveBalance 残高を保存（バージョン一致時のみ更新、不一致はErrVersionConflict）
	SaveBalance(ctx context.Context, u *User) error

	// SetBanned BANフラグを設定
	SetBanned(ctx context.Context, userID string, banned bool) error

	// SetReferredBy 紹介者が未設定の場合のみ設定（設定済みはErrAlreadyReferred）
	SetReferredBy(ctx context.Context, userID, referrerID string) error
}
