package transaction

import (
	"errors"
	"fmt"

	"keyshop-server/internal/domain/errs"
)

var (
	// ErrTransactionNotFound トランザクションが見つからないエラー
	ErrTransactionNotFound = fmt.Errorf("%w: transaction not found", errs.ErrNotFound)
	// ErrInvalidTransaction 無効なトランザクションエラー
	ErrInvalidTransaction = fmt.Errorf("%w: invalid transaction", errs.ErrValidation)
	// ErrDuplicateTransactionID 重複トランザクションIDエラー
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")
)
