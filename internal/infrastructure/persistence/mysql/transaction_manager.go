package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TransactionManager トランザクション管理を提供
type TransactionManager struct {
	db *DB
}

// NewTransactionManager 新しいトランザクションマネージャーを作成
func NewTransactionManager(db *DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction トランザクション内で関数を実行
// 既にトランザクション内の場合は外側のトランザクションに参加する
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("failed to commit transaction", err)
	}
	return nil
}

// InTransaction コンテキストが既にトランザクション内かを返す
func (tm *TransactionManager) InTransaction(ctx context.Context) bool {
	return inTx(ctx)
}
