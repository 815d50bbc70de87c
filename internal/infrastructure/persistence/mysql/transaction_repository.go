package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
)

// TransactionRepository MySQL実装のTransactionRepository（残高仕訳）
type TransactionRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewTransactionRepository 新しいTransactionRepositoryを作成
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		tracer: otel.Tracer("transaction-repository"),
	}
}

const selectTransactionQuery = `
		SELECT
			transaction_id, user_id, transaction_type, amount,
			balance_before, balance_after, status, reference_id, metadata, created_at
		FROM balance_transactions
	`

// Save 仕訳を追加
func (r *TransactionRepository) Save(ctx context.Context, t *transaction.Transaction) error {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.transaction_id", t.TransactionID()),
		attribute.String("db.user_id", t.UserID()),
		attribute.String("db.transaction_type", t.TransactionType().String()),
		attribute.Int64("db.amount", t.Amount()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "balance_transactions"),
	)

	query := `
		INSERT INTO balance_transactions (
			transaction_id, user_id, transaction_type, amount,
			balance_before, balance_after, status, reference_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var metadataValue interface{}
	if t.Metadata() != nil {
		metadataJSON, err := json.Marshal(t.Metadata())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataValue = string(metadataJSON)
	}

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		t.TransactionID(),
		t.UserID(),
		t.TransactionType().String(),
		t.Amount(),
		t.BalanceBefore(),
		t.BalanceAfter(),
		t.Status().String(),
		stringPtrValue(t.ReferenceID()),
		metadataValue,
		t.CreatedAt(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isDuplicateEntry(err) {
			return transaction.ErrDuplicateTransactionID
		}
		return wrapErr("failed to save transaction", err)
	}

	span.SetStatus(otelcodes.Ok, "transaction saved")
	return nil
}

// FindByUserID ユーザーIDで仕訳一覧を新しい順に取得（ページネーション対応）
func (r *TransactionRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*transaction.Transaction, error) {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.FindByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "balance_transactions"),
	)

	query := selectTransactionQuery + `
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to query transactions", err)
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("db.result_count", len(transactions)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d transactions", len(transactions)))
	return transactions, nil
}

// FindByReferenceID 関連IDで仕訳一覧を取得（購入の引き落としと返金の突合用）
func (r *TransactionRepository) FindByReferenceID(ctx context.Context, referenceID string) ([]*transaction.Transaction, error) {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.FindByReferenceID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.reference_id", referenceID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "balance_transactions"),
	)

	rows, err := r.db.conn(ctx).QueryContext(ctx, selectTransactionQuery+`
		WHERE reference_id = ?
		ORDER BY created_at
	`, referenceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to query transactions", err)
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d transactions", len(transactions)))
	return transactions, nil
}

// MarkReversed 完了済みの仕訳を取り消し済みにする
func (r *TransactionRepository) MarkReversed(ctx context.Context, transactionID string) error {
	ctx, span := r.tracer.Start(ctx, "TransactionRepository.MarkReversed")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.transaction_id", transactionID),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "balance_transactions"),
	)

	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE balance_transactions
		SET status = ?
		WHERE transaction_id = ? AND status = ?
	`, transaction.TransactionStatusReversed.String(), transactionID, transaction.TransactionStatusCompleted.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		if isRetryableLock(err) {
			return user.ErrVersionConflict
		}
		return wrapErr("failed to reverse transaction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Error, transaction.ErrTransactionNotFound.Error())
		return transaction.ErrTransactionNotFound
	}

	span.SetStatus(otelcodes.Ok, "transaction reversed")
	return nil
}

func scanTransactions(rows *sql.Rows) ([]*transaction.Transaction, error) {
	var transactions []*transaction.Transaction
	for rows.Next() {
		var (
			transactionID, userID, transactionType, status string
			amount, balanceBefore, balanceAfter            int64
			referenceID, metadataJSON                      sql.NullString
			createdAt                                      time.Time
		)
		if err := rows.Scan(
			&transactionID,
			&userID,
			&transactionType,
			&amount,
			&balanceBefore,
			&balanceAfter,
			&status,
			&referenceID,
			&metadataJSON,
			&createdAt,
		); err != nil {
			return nil, wrapErr("failed to scan transaction", err)
		}

		tt, err := transaction.NewTransactionType(transactionType)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction type: %w", err)
		}
		ts, err := transaction.NewTransactionStatus(status)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction status: %w", err)
		}

		var metadata map[string]interface{}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		t, err := transaction.NewTransaction(transactionID, userID, tt, amount, balanceBefore, balanceAfter, ts, metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to reconstruct transaction entity: %w", err)
		}
		if referenceID.Valid {
			t.SetReferenceID(referenceID.String)
		}
		t.SetCreatedAt(createdAt)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate transactions", err)
	}
	return transactions, nil
}
