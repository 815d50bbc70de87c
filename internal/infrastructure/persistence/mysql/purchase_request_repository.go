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

	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
)

// PurchaseRequestRepository MySQL実装のRequestRepository
type PurchaseRequestRepository struct {
	db     *DB
	tracer trace.Tracer
	now    func() time.Time
}

// NewPurchaseRequestRepository 新しいPurchaseRequestRepositoryを作成
func NewPurchaseRequestRepository(db *DB) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{
		db:     db,
		tracer: otel.Tracer("purchase-request-repository"),
		now:    time.Now,
	}
}

// Create リクエストを作成。同じキーが既に存在する場合はfalseを返す
func (r *PurchaseRequestRepository) Create(ctx context.Context, req *purchase.Request) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "PurchaseRequestRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.idempotency_key", req.IdempotencyKey()),
		attribute.String("db.user_id", req.UserID()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "purchase_requests"),
	)

	query := `
		INSERT INTO purchase_requests (idempotency_key, user_id, game, duration, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		req.IdempotencyKey(),
		req.UserID(),
		req.SKU().Game,
		req.SKU().Duration,
		req.Status().String(),
		req.CreatedAt(),
		req.UpdatedAt(),
	)
	if err != nil {
		if isDuplicateEntry(err) {
			span.SetStatus(otelcodes.Ok, "request already exists")
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, wrapErr("failed to create purchase request", err)
	}

	span.SetStatus(otelcodes.Ok, "request created")
	return true, nil
}

// FindByKey 冪等性キーでリクエストを取得
func (r *PurchaseRequestRepository) FindByKey(ctx context.Context, idempotencyKey string) (*purchase.Request, error) {
	ctx, span := r.tracer.Start(ctx, "PurchaseRequestRepository.FindByKey")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.idempotency_key", idempotencyKey),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "purchase_requests"),
	)

	query := `
		SELECT idempotency_key, user_id, game, duration, status, purchase_id, failure_reason, created_at, updated_at
		FROM purchase_requests
		WHERE idempotency_key = ?
	`

	var (
		dbKey, userID, game, duration, status string
		purchaseID, failureReason             sql.NullString
		createdAt, updatedAt                  time.Time
	)
	err := r.db.conn(ctx).QueryRowContext(ctx, query, idempotencyKey).Scan(
		&dbKey, &userID, &game, &duration, &status, &purchaseID, &failureReason, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(otelcodes.Ok, "request not found")
		return nil, purchase.ErrRequestNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to find purchase request", err)
	}

	rs := purchase.RequestStatus(status)
	if !rs.Valid() {
		err := errors.New("invalid purchase request status: " + status)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("db.status", status))
	span.SetStatus(otelcodes.Ok, "request found")
	return purchase.RestoreRequest(
		dbKey,
		userID,
		key.SKU{Game: game, Duration: duration},
		rs,
		nullStringPtr(purchaseID),
		nullStringPtr(failureReason),
		createdAt,
		updatedAt,
	), nil
}

// Reclaim 失敗状態のリクエストを処理中に戻す。戻せた場合はtrueを返す
func (r *PurchaseRequestRepository) Reclaim(ctx context.Context, idempotencyKey string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "PurchaseRequestRepository.Reclaim")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.idempotency_key", idempotencyKey),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "purchase_requests"),
	)

	query := `
		UPDATE purchase_requests
		SET status = ?, failure_reason = NULL, updated_at = ?
		WHERE idempotency_key = ? AND status = ?
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		purchase.RequestStatusPending.String(),
		r.now(),
		idempotencyKey,
		purchase.RequestStatusFailed.String(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, wrapErr("failed to reclaim purchase request", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, wrapErr("failed to get rows affected", err)
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	span.SetStatus(otelcodes.Ok, "reclaim attempted")
	return rowsAffected == 1, nil
}

// Update ステータス・購入ID・失敗理由を更新
func (r *PurchaseRequestRepository) Update(ctx context.Context, req *purchase.Request) error {
	ctx, span := r.tracer.Start(ctx, "PurchaseRequestRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.idempotency_key", req.IdempotencyKey()),
		attribute.String("db.status", req.Status().String()),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "purchase_requests"),
	)

	query := `
		UPDATE purchase_requests
		SET status = ?, purchase_id = ?, failure_reason = ?, updated_at = ?
		WHERE idempotency_key = ?
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		req.Status().String(),
		stringPtrValue(req.PurchaseID()),
		stringPtrValue(req.FailureReason()),
		req.UpdatedAt(),
		req.IdempotencyKey(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to update purchase request", err)
	}

	span.SetStatus(otelcodes.Ok, "request updated")
	return nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func stringPtrValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
