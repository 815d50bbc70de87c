package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
)

// PurchaseRepository MySQL実装のPurchaseRepository
type PurchaseRepository struct {
	db     *DB
	tracer trace.Tracer
}

// NewPurchaseRepository 新しいPurchaseRepositoryを作成
func NewPurchaseRepository(db *DB) *PurchaseRepository {
	return &PurchaseRepository{
		db:     db,
		tracer: otel.Tracer("purchase-repository"),
	}
}

const selectPurchaseQuery = `
		SELECT p.purchase_id, p.user_id, p.key_id, p.game, p.duration, p.price, p.created_at, k.content
		FROM purchases p
		JOIN product_keys k ON k.key_id = p.key_id
	`

// Save 購入記録を追加
func (r *PurchaseRepository) Save(ctx context.Context, p *purchase.Purchase) error {
	ctx, span := r.tracer.Start(ctx, "PurchaseRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.purchase_id", p.PurchaseID()),
		attribute.String("db.user_id", p.UserID()),
		attribute.String("db.key_id", p.KeyID()),
		attribute.Int64("db.price", p.Price()),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.table", "purchases"),
	)

	query := `
		INSERT INTO purchases (purchase_id, user_id, key_id, game, duration, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.conn(ctx).ExecContext(ctx, query,
		p.PurchaseID(),
		p.UserID(),
		p.KeyID(),
		p.SKU().Game,
		p.SKU().Duration,
		p.Price(),
		p.CreatedAt(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return wrapErr("failed to save purchase", err)
	}

	span.SetStatus(otelcodes.Ok, "purchase saved")
	return nil
}

// FindByID 購入IDで購入記録を取得
func (r *PurchaseRepository) FindByID(ctx context.Context, purchaseID string) (*purchase.Purchase, error) {
	ctx, span := r.tracer.Start(ctx, "PurchaseRepository.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.purchase_id", purchaseID),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "purchases"),
	)

	rows, err := r.db.conn(ctx).QueryContext(ctx, selectPurchaseQuery+` WHERE p.purchase_id = ?`, purchaseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to find purchase", err)
	}
	defer rows.Close()

	purchases, err := scanPurchases(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	if len(purchases) == 0 {
		span.SetStatus(otelcodes.Ok, "purchase not found")
		return nil, purchase.ErrPurchaseNotFound
	}

	span.SetStatus(otelcodes.Ok, "purchase found")
	return purchases[0], nil
}

// FindByUserID ユーザーの購入記録を新しい順に取得
func (r *PurchaseRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]*purchase.Purchase, error) {
	ctx, span := r.tracer.Start(ctx, "PurchaseRepository.FindByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.user_id", userID),
		attribute.Int("db.limit", limit),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "purchases"),
	)

	query := selectPurchaseQuery + `
		WHERE p.user_id = ?
		ORDER BY p.created_at DESC, p.purchase_id DESC
		LIMIT ?
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, userID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, wrapErr("failed to query purchases", err)
	}
	defer rows.Close()

	purchases, err := scanPurchases(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("db.result_count", len(purchases)))
	span.SetStatus(otelcodes.Ok, fmt.Sprintf("found %d purchases", len(purchases)))
	return purchases, nil
}

func scanPurchases(rows *sql.Rows) ([]*purchase.Purchase, error) {
	purchases := make([]*purchase.Purchase, 0)
	for rows.Next() {
		var (
			purchaseID, userID, keyID, game, duration string
			price                                     int64
			createdAt                                 time.Time
			content                                   string
		)
		if err := rows.Scan(&purchaseID, &userID, &keyID, &game, &duration, &price, &createdAt, &content); err != nil {
			return nil, wrapErr("failed to scan purchase", err)
		}

		p, err := purchase.NewPurchase(purchaseID, userID, keyID, key.SKU{Game: game, Duration: duration}, price, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to reconstruct purchase entity: %w", err)
		}
		p.SetKeyContent(content)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate purchases", err)
	}
	return purchases, nil
}
