package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/infrastructure/config"
)

// MySQLエラー番号
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// DB データベース接続とトランザクション管理を提供
type DB struct {
	*sql.DB
}

// executor *sql.DB と *sql.Tx の共通操作
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// NewDB 新しいデータベース接続を作成
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 接続プールの設定
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %w", errs.ErrStorageUnavailable, err)
	}

	return &DB{DB: db}, nil
}

// Close データベース接続を閉じる
func (db *DB) Close() error {
	return db.DB.Close()
}

// HealthCheck データベースのヘルスチェックを実行
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
	return nil
}

// conn コンテキストにトランザクションがあればそれを、なければ接続プールを返す
func (db *DB) conn(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.DB
}

// inTx コンテキストがトランザクション内かを返す
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// wrapErr 操作名を付けてエラーをラップする。接続断はErrStorageUnavailableに分類する
func wrapErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

// isRetryableLock ロック待ちタイムアウト・デッドロックかを返す
func isRetryableLock(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && (myErr.Number == errDeadlock || myErr.Number == errLockWaitTimeout)
}
