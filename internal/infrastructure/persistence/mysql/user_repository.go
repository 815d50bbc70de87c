package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/user"
)

// UserRepository MySQL実装のUserRepository
type UserRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewUserRepository 新しいUserRepositoryを作成
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{
		db:     db,
		tracer: otel.Tracer("user-repository"),
	}
}

const selectUserQuery = `
		SELECT user_id, balance, is_banned, referred_by, version, created_at
		FROM users
		WHERE user_id = ?
	`

// GetOrCreate ユーザーを取得し、存在しなければ残高0で作成
func (r *UserRepository) GetOrCreate(ctx context.Context, userID string) (*user.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetOrCreate")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.table", "users"),
	)

	if err := user.ValidateUserID(userID); err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	// 同時作成でも主キーで1行に収束する
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (user_id) VALUES (?)
		ON DUPLICATE KEY UPDATE user_id = user_id
	`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isRetryableLock(err) {
			return nil, user.ErrVersionConflict
		}
		return nil, wrapErr("failed to create user", err)
	}

	u, err := r.find(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("db.balance", u.Balance()),
		attribute.Int("db.version", u.Version()),
	)
	span.SetStatus(otelcodes.Ok, "user loaded")
	return u, nil
}

// FindByID ユーザーIDでユーザーを取得
func (r *UserRepository) FindByID(ctx context.Context, userID string) (*user.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "users"),
	)

	u, err := r.find(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		span.SetStatus(otelcodes.Ok, "user not found")
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, "user found")
	return u, nil
}

// find トランザクション内では最新のコミット済み行をロック付きで読む
func (r *UserRepository) find(ctx context.Context, userID string) (*user.User, error) {
	query := selectUserQuery
	if inTx(ctx) {
		query += " FOR UPDATE"
	}

	var (
		dbUserID   string
		balance    int64
		banned     bool
		referredBy sql.NullString
		version    int
		createdAt  time.Time
	)
	err := r.db.conn(ctx).QueryRowContext(ctx, query, userID).Scan(
		&dbUserID,
		&balance,
		&banned,
		&referredBy,
		&version,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		if isRetryableLock(err) {
			return nil, user.ErrVersionConflict
		}
		return nil, wrapErr("failed to find user", err)
	}

	var referredByPtr *string
	if referredBy.Valid {
		referredByPtr = &referredBy.String
	}

	u, err := user.NewUser(dbUserID, balance, banned, referredByPtr, version)
	if err != nil {
		return nil, wrapErr("failed to reconstruct user entity", err)
	}
	u.SetCreatedAt(createdAt)
	return u, nil
}

// SaveBalance 残高を保存（楽観的ロック対応）
func (r *UserRepository) SaveBalance(ctx context.Context, u *user.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.SaveBalance")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", u.UserID()),
		attribute.Int64("db.balance", u.Balance()),
		attribute.Int("db.version", u.Version()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "users"),
	)

	query := `
		UPDATE users
		SET balance = ?, version = version + 1
		WHERE user_id = ? AND version = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		u.Balance(),
		u.UserID(),
		u.Version(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isRetryableLock(err) {
			return user.ErrVersionConflict
		}
		return wrapErr("failed to save balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		span.RecordError(user.ErrVersionConflict)
		span.SetStatus(otelcodes.Error, user.ErrVersionConflict.Error())
		return user.ErrVersionConflict
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "balance saved")
	return nil
}

// SetBanned BANフラグを設定（未登録ユーザーはBAN状態で作成）
func (r *UserRepository) SetBanned(ctx context.Context, userID string, banned bool) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.SetBanned")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Bool("db.is_banned", banned),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.table", "users"),
	)

	if err := user.ValidateUserID(userID); err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (user_id, is_banned) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE is_banned = VALUES(is_banned)
	`, userID, banned)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to set banned", err)
	}

	span.SetStatus(otelcodes.Ok, "ban flag updated")
	return nil
}

// SetReferredBy 紹介者が未設定の場合のみ設定
func (r *UserRepository) SetReferredBy(ctx context.Context, userID, referrerID string) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.SetReferredBy")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.String("db.referrer_id", referrerID),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "users"),
	)

	if userID == referrerID {
		span.SetStatus(otelcodes.Error, user.ErrSelfReferral.Error())
		return user.ErrSelfReferral
	}

	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE users
		SET referred_by = ?
		WHERE user_id = ? AND referred_by IS NULL
	`, referrerID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isRetryableLock(err) {
			return user.ErrVersionConflict
		}
		return wrapErr("failed to set referrer", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to get rows affected", err)
	}

	// 行が存在しない場合も含め、更新できなければ設定済みとして扱う
	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "already referred")
		return user.ErrAlreadyReferred
	}

	span.SetStatus(otelcodes.Ok, "referrer set")
	return nil
}
