package user

import (
	"errors"
	"fmt"

	"keyshop-server/internal/domain/errs"
)

var (
	// ErrUserNotFound ユーザーが見つからないエラー
	ErrUserNotFound = fmt.Errorf("%w: user not found", errs.ErrNotFound)
	// ErrInvalidUserID ユーザーIDが無効
	ErrInvalidUserID = fmt.Errorf("%w: invalid user id", errs.ErrValidation)
	// ErrInvalidAmount 無効な金額エラー
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", errs.ErrValidation)
	// ErrBalanceOutOfRange 残高が範囲外
	ErrBalanceOutOfRange = fmt.Errorf("%w: balance out of range", errs.ErrValidation)
	// ErrInsufficientFunds 残高不足エラー
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBanned BAN済みユーザーの操作
	ErrBanned = errors.New("user is banned")
	// ErrAlreadyReferred 紹介者が既に設定済み
	ErrAlreadyReferred = errors.New("user already referred")
	// ErrSelfReferral 自分自身を紹介者に指定
	ErrSelfReferral = errors.New("self referral is not allowed")
	// ErrVersionConflict 楽観的ロックの競合
	ErrVersionConflict = errors.New("optimistic lock failed: version mismatch")
)
