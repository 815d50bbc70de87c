package key

import (
	"errors"
	"fmt"

	"keyshop-server/internal/domain/errs"
)

var (
	// ErrKeyNotFound キーが見つからないエラー
	ErrKeyNotFound = fmt.Errorf("%w: key not found", errs.ErrNotFound)
	// ErrOutOfStock 在庫切れエラー
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidKeyID キーIDが無効
	ErrInvalidKeyID = fmt.Errorf("%w: invalid key id", errs.ErrValidation)
	// ErrInvalidGame ゲーム名が無効
	ErrInvalidGame = fmt.Errorf("%w: invalid game", errs.ErrValidation)
	// ErrInvalidDuration 期間が無効
	ErrInvalidDuration = fmt.Errorf("%w: invalid duration", errs.ErrValidation)
	// ErrInvalidContent キー内容が無効（6文字以上が必要）
	ErrInvalidContent = fmt.Errorf("%w: key content must be longer than %d characters", errs.ErrValidation, MinContentLength)
	// ErrDuplicateKey 同一内容のキーが既に登録済み
	ErrDuplicateKey = errors.New("duplicate key content")
	// ErrAlreadyUsed キーは使用済み
	ErrAlreadyUsed = errors.New("key already used")
)
