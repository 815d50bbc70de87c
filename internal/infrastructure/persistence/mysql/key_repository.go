package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/key"
)

// allocateMaxAttempts デッドロック時の確保リトライ回数
const allocateMaxAttempts = 3

// KeyRepository MySQL実装のKeyRepository
type KeyRepository struct {
	db       *DB
	tracer   trace.Tracer
	newToken func() string
	now      func() time.Time
}

// NewKeyRepository 新しいKeyRepositoryを作成
func NewKeyRepository(db *DB) *KeyRepository {
	return &KeyRepository{
		db:       db,
		tracer:   otel.Tracer("key-repository"),
		newToken: func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// contentHash 重複検出用のキー内容ハッシュ
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

const selectKeyColumns = `key_id, game, duration, content, used, used_by, used_at, created_at`

// Add 未使用キーを1件追加
func (r *KeyRepository) Add(ctx context.Context, k *key.Key) error {
	ctx, span := r.tracer.Start(ctx, "KeyRepository.Add")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.key_id", k.KeyID()),
		attribute.String("db.sku", k.SKU().String()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "product_keys"),
	)

	query := `
		INSERT INTO product_keys (key_id, game, duration, content, content_hash, used, created_at)
		VALUES (?, ?, ?, ?, ?, FALSE, ?)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		k.KeyID(),
		k.Game(),
		k.Duration(),
		k.Content(),
		contentHash(k.Content()),
		k.CreatedAt(),
	)
	if err != nil {
		if isDuplicateEntry(err) {
			span.SetStatus(otelcodes.Error, key.ErrDuplicateKey.Error())
			return key.ErrDuplicateKey
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to add key", err)
	}

	span.SetStatus(otelcodes.Ok, "key added")
	return nil
}

// CountAvailable SKUの未使用キー数を取得
func (r *KeyRepository) CountAvailable(ctx context.Context, sku key.SKU) (int, error) {
	ctx, span := r.tracer.Start(ctx, "KeyRepository.CountAvailable")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.sku", sku.String()),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "product_keys"),
	)

	query := `
		SELECT COUNT(*)
		FROM product_keys
		WHERE game = ? AND duration = ? AND used = FALSE
	`

	var count int
	if err := r.db.conn(ctx).QueryRowContext(ctx, query, sku.Game, sku.Duration).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, wrapErr("failed to count keys", err)
	}

	span.SetAttributes(attribute.Int("db.available", count))
	span.SetStatus(otelcodes.Ok, "keys counted")
	return count, nil
}

// Allocate SKUの最も古い未使用キーを1文で使用済みにし、そのキーを返す
// 同時に呼ばれても同じキーが2回返ることはない
func (r *KeyRepository) Allocate(ctx context.Context, sku key.SKU, userID string) (*key.Key, error) {
	ctx, span := r.tracer.Start(ctx, "KeyRepository.Allocate")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.sku", sku.String()),
		attribute.String("db.user_id", userID),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.table", "product_keys"),
	)

	token := r.newToken()
	query := `
		UPDATE product_keys
		SET used = TRUE, used_by = ?, used_at = ?, claim_token = ?
		WHERE game = ? AND duration = ? AND used = FALSE
		ORDER BY created_at, key_id
		LIMIT 1
	`

	var rowsAffected int64
	for attempt := 1; ; attempt++ {
		result, err := r.db.conn(ctx).ExecContext(ctx, query, userID, r.now(), token, sku.Game, sku.Duration)
		if err != nil {
			if isRetryableLock(err) && attempt < allocateMaxAttempts && !inTx(ctx) {
				continue
			}
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, wrapErr("failed to allocate key", err)
		}
		rowsAffected, err = result.RowsAffected()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, wrapErr("failed to get rows affected", err)
		}
		break
	}

	if rowsAffected == 0 {
		span.SetStatus(otelcodes.Ok, "out of stock")
		return nil, key.ErrOutOfStock
	}

	row := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+selectKeyColumns+` FROM product_keys WHERE claim_token = ?`, token)
	k, err := scanKey(row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load allocated key: %w", err)
	}

	span.SetAttributes(attribute.String("db.key_id", k.KeyID()))
	span.SetStatus(otelcodes.Ok, "key allocated")
	return k, nil
}

// FindByContent キー内容でキーを取得
func (r *KeyRepository) FindByContent(ctx context.Context, content string) (*key.Key, error) {
	ctx, span := r.tracer.Start(ctx, "KeyRepository.FindByContent")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "product_keys"),
	)

	row := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+selectKeyColumns+` FROM product_keys WHERE content_hash = ?`, contentHash(content))
	k, err := scanKey(row)
	if errors.Is(err, key.ErrKeyNotFound) {
		span.SetStatus(otelcodes.Ok, "key not found")
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("db.key_id", k.KeyID()))
	span.SetStatus(otelcodes.Ok, "key found")
	return k, nil
}

// FindByID キーIDでキーを取得
func (r *KeyRepository) FindByID(ctx context.Context, keyID string) (*key.Key, error) {
	ctx, span := r.tracer.Start(ctx, "KeyRepository.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.key_id", keyID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "product_keys"),
	)

	row := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+selectKeyColumns+` FROM product_keys WHERE key_id = ?`, keyID)
	k, err := scanKey(row)
	if err != nil {
		if !errors.Is(err, key.ErrKeyNotFound) {
			span.RecordError(err)
		}
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(otelcodes.Ok, "key found")
	return k, nil
}

// Report 既知の全SKUの在庫数を取得（在庫0のSKUも含む）
func (r *KeyRepository) Report(ctx context.Context) ([]key.StockEntry, error) {
	ctx, span := r.tracer.Start(ctx, "KeyRepository.Report")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "product_keys"),
	)

	query := `
		SELECT game, duration, COALESCE(SUM(CASE WHEN used = FALSE THEN 1 ELSE 0 END), 0) AS available
		FROM product_keys
		GROUP BY game, duration
		ORDER BY game, duration
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to query stock", err)
	}
	defer rows.Close()

	var entries []key.StockEntry
	for rows.Next() {
		var e key.StockEntry
		if err := rows.Scan(&e.SKU.Game, &e.SKU.Duration, &e.Available); err != nil {
			return nil, wrapErr("failed to scan stock", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to iterate stock", err)
	}

	span.SetAttributes(attribute.Int("db.result_count", len(entries)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d skus", len(entries)))
	return entries, nil
}

func scanKey(row *sql.Row) (*key.Key, error) {
	var (
		keyID, game, duration, content string
		used                           bool
		usedBy                         sql.NullString
		usedAt                         sql.NullTime
		createdAt                      time.Time
	)
	err := row.Scan(&keyID, &game, &duration, &content, &used, &usedBy, &usedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, key.ErrKeyNotFound
	}
	if err != nil {
		return nil, wrapErr("failed to scan key", err)
	}

	var usedByPtr *string
	if usedBy.Valid {
		usedByPtr = &usedBy.String
	}
	var usedAtPtr *time.Time
	if usedAt.Valid {
		usedAtPtr = &usedAt.Time
	}

	return key.Restore(keyID, key.SKU{Game: game, Duration: duration}, content, used, usedByPtr, usedAtPtr, createdAt), nil
}
