package errs

import "errors"

// エラー分類。各ドメインのエラーはこれらをラップして分類を表す
var (
	// ErrValidation 入力値が不正
	ErrValidation = errors.New("validation error")
	// ErrNotFound 対象が存在しない
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable ストレージに到達できない
	ErrStorageUnavailable = errors.New("storage unavailable")
)
