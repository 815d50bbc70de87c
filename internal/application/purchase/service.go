package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/key"
	"keyshop-server/internal/domain/purchase"
	"keyshop-server/internal/domain/service"
	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// Ledger 残高変更を行うコンポーネント
type Ledger interface {
	AdjustBalance(ctx context.Context, userID string, delta int64, txType transaction.TransactionType, referenceID string, metadata map[string]interface{}) (*service.LedgerEntry, error)
	Refund(ctx context.Context, debit *service.LedgerEntry, referenceID string, metadata map[string]interface{}) (*service.LedgerEntry, error)
}

// StockInvalidator 在庫レポートのキャッシュを破棄する
type StockInvalidator interface {
	InvalidateStock(ctx context.Context) error
}

// 購入結果のメトリクス用ステータス
const (
	outcomeSuccess           = "success"
	outcomeBanned            = "banned"
	outcomeInvalid           = "invalid"
	outcomeOutOfStock        = "out_of_stock"
	outcomeInsufficientFunds = "insufficient_funds"
	outcomePartial           = "partial"
	outcomeFailed            = "failed"
)

// PurchaseApplicationService キー購入のオーケストレーター
//
// 手順: 利用者確認 → 価格解決 → 在庫の事前確認 → 残高の事前確認 → 引き落とし → キー確保 → 購入記録
// 事前確認は早期失敗のためのもので、確定は引き落としとキー確保の条件付き更新で行う。
// 引き落とし後に在庫切れとなった場合のみ返金で補償する。
// それ以外のキー確保の失敗と購入記録の失敗は、何も戻さずPartialCommitErrorとして返す。
type PurchaseApplicationService struct {
	userRepo       user.UserRepository
	keyRepo        key.KeyRepository
	purchaseRepo   purchase.PurchaseRepository
	requestRepo    purchase.RequestRepository
	ledger         Ledger
	prices         *purchase.PriceTable
	stockCache     StockInvalidator
	logger         *otelinfra.Logger
	metrics        *otelinfra.Metrics
	tracer         trace.Tracer
	pendingTimeout time.Duration
	newID          func() string
	now            func() time.Time
}

// NewPurchaseApplicationService 新しいPurchaseApplicationServiceを作成
func NewPurchaseApplicationService(
	userRepo user.UserRepository,
	keyRepo key.KeyRepository,
	purchaseRepo purchase.PurchaseRepository,
	requestRepo purchase.RequestRepository,
	ledger Ledger,
	prices *purchase.PriceTable,
	stockCache StockInvalidator,
	pendingTimeout time.Duration,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *PurchaseApplicationService {
	if pendingTimeout <= 0 {
		pendingTimeout = 2 * time.Minute
	}
	return &PurchaseApplicationService{
		userRepo:       userRepo,
		keyRepo:        keyRepo,
		purchaseRepo:   purchaseRepo,
		requestRepo:    requestRepo,
		ledger:         ledger,
		prices:         prices,
		stockCache:     stockCache,
		logger:         logger,
		metrics:        metrics,
		tracer:         otel.Tracer("purchase-service"),
		pendingTimeout: pendingTimeout,
		newID: func() string {
			return uuid.New().String()
		},
		now: time.Now,
	}
}

// PurchaseKey キーを1件購入する
// 処理開始後は呼び出し元のキャンセルを引き継がず、引き落としとキー確保は最後まで実行する
func (s *PurchaseApplicationService) PurchaseKey(ctx context.Context, req *PurchaseKeyRequest) (*PurchaseKeyResponse, error) {
	ctx, span := s.tracer.Start(ctx, "PurchaseApplicationService.PurchaseKey")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("game", req.Game),
		attribute.String("duration", req.Duration),
		attribute.Bool("idempotent", req.IdempotencyKey != ""),
	)

	fail := func(err error, outcome, sku string) (*PurchaseKeyResponse, error) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.metrics.RecordPurchase(ctx, sku, outcome)
		return nil, err
	}

	if err := user.ValidateUserID(req.UserID); err != nil {
		return fail(err, outcomeInvalid, "")
	}
	sku, err := key.NewSKU(req.Game, req.Duration)
	if err != nil {
		return fail(err, outcomeInvalid, "")
	}

	s.logger.Info(ctx, "Processing purchase", map[string]interface{}{
		"user_id":         req.UserID,
		"sku":             sku.String(),
		"idempotency_key": req.IdempotencyKey,
	})

	ctx = context.WithoutCancel(ctx)

	var request *purchase.Request
	if req.IdempotencyKey != "" {
		var replay *PurchaseKeyResponse
		request, replay, err = s.claimRequest(ctx, req.IdempotencyKey, req.UserID, sku)
		if err != nil {
			return fail(err, outcomeOf(err), sku.String())
		}
		if replay != nil {
			s.logger.Info(ctx, "Purchase replayed", map[string]interface{}{
				"user_id":         req.UserID,
				"purchase_id":     replay.PurchaseID,
				"idempotency_key": req.IdempotencyKey,
			})
			span.SetAttributes(attribute.Bool("replayed", true))
			span.SetStatus(otelcodes.Ok, "purchase replayed")
			return replay, nil
		}
	}

	resp, err := s.execute(ctx, req.UserID, sku)
	if request != nil {
		s.finishRequest(ctx, request, resp, err)
	}
	if err != nil {
		return fail(err, outcomeOf(err), sku.String())
	}

	s.metrics.RecordPurchase(ctx, sku.String(), outcomeSuccess)
	s.logger.Info(ctx, "Purchase completed", map[string]interface{}{
		"user_id":       req.UserID,
		"purchase_id":   resp.PurchaseID,
		"key_id":        resp.KeyID,
		"price":         resp.Price,
		"balance_after": resp.BalanceAfter,
	})
	span.SetAttributes(attribute.String("purchase_id", resp.PurchaseID))
	span.SetStatus(otelcodes.Ok, "purchase completed")
	return resp, nil
}

// execute 購入の状態遷移を実行する
func (s *PurchaseApplicationService) execute(ctx context.Context, userID string, sku key.SKU) (*PurchaseKeyResponse, error) {
	// Admit
	u, err := s.userRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := u.EnsureActive(); err != nil {
		return nil, err
	}

	// Price
	price, err := s.prices.Price(sku.Duration)
	if err != nil {
		return nil, err
	}

	// StockCheck
	available, err := s.keyRepo.CountAvailable(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to count stock: %w", err)
	}
	if available == 0 {
		return nil, key.ErrOutOfStock
	}

	// FundsCheck
	if !u.CanAfford(price) {
		return nil, user.ErrInsufficientFunds
	}

	// Reserve
	purchaseID := s.newID()
	debit, err := s.ledger.AdjustBalance(ctx, userID, -price, transaction.TransactionTypeConsume, purchaseID, map[string]interface{}{
		"game":     sku.Game,
		"duration": sku.Duration,
	})
	if errors.Is(err, user.ErrVersionConflict) {
		return nil, fmt.Errorf("%w: balance update kept conflicting: %v", errs.ErrStorageUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordBalanceAdjustment(ctx, transaction.TransactionTypeConsume.String(), debit.BalanceAfter)

	// Allocate
	k, err := s.keyRepo.Allocate(ctx, sku, userID)
	if errors.Is(err, key.ErrOutOfStock) {
		return nil, s.compensate(ctx, sku, price, purchaseID, debit, err)
	}
	if err != nil {
		// 確保のUPDATEが反映されたか判別できないため、返金せず突合に回す
		partial := &purchase.PartialCommitError{Stage: "allocate", UserID: userID, Price: price, Err: err}
		s.metrics.RecordPartialCommit(ctx, partial.Stage)
		s.logger.Error(ctx, "Key allocation failed after debit", err, map[string]interface{}{
			"stage":          partial.Stage,
			"user_id":        userID,
			"sku":            sku.String(),
			"price":          price,
			"purchase_id":    purchaseID,
			"transaction_id": debit.TransactionID,
		})
		return nil, partial
	}
	s.invalidateStock(ctx)

	// Commit
	record, err := purchase.NewPurchase(purchaseID, userID, k.KeyID(), sku, price, s.now())
	if err == nil {
		err = s.purchaseRepo.Save(ctx, record)
	}
	if err != nil {
		partial := &purchase.PartialCommitError{Stage: "record", UserID: userID, KeyID: k.KeyID(), Price: price, Err: err}
		s.metrics.RecordPartialCommit(ctx, partial.Stage)
		s.logger.Error(ctx, "Purchase record failed after debit and allocation", err, map[string]interface{}{
			"stage":          partial.Stage,
			"user_id":        userID,
			"key_id":         k.KeyID(),
			"price":          price,
			"purchase_id":    purchaseID,
			"transaction_id": debit.TransactionID,
		})
		return nil, partial
	}

	return &PurchaseKeyResponse{
		PurchaseID:   purchaseID,
		KeyID:        k.KeyID(),
		KeyContent:   k.Content(),
		Game:         sku.Game,
		Duration:     sku.Duration,
		Price:        price,
		BalanceAfter: debit.BalanceAfter,
		CreatedAt:    record.CreatedAt(),
	}, nil
}

// compensate 在庫切れで確保できなかった引き落とし分を返金する
// 返金できた場合はErrOutOfStockを、返金にも失敗した場合はPartialCommitErrorを返す
func (s *PurchaseApplicationService) compensate(ctx context.Context, sku key.SKU, price int64, purchaseID string, debit *service.LedgerEntry, cause error) error {
	userID := debit.UserID
	refund, err := s.ledger.Refund(ctx, debit, purchaseID, map[string]interface{}{
		"game":     sku.Game,
		"duration": sku.Duration,
		"reason":   cause.Error(),
	})
	if err != nil {
		partial := &purchase.PartialCommitError{Stage: "refund", UserID: userID, Price: price, Err: errors.Join(cause, err)}
		s.metrics.RecordPartialCommit(ctx, partial.Stage)
		s.logger.Error(ctx, "Refund failed after out of stock", err, map[string]interface{}{
			"stage":       partial.Stage,
			"user_id":     userID,
			"sku":         sku.String(),
			"price":       price,
			"purchase_id": purchaseID,
			"cause":       cause.Error(),
		})
		return partial
	}

	s.metrics.RecordCompensation(ctx, sku.String())
	s.metrics.RecordBalanceAdjustment(ctx, transaction.TransactionTypeRefund.String(), refund.BalanceAfter)
	s.logger.Warn(ctx, "Out of stock after debit, refunded", map[string]interface{}{
		"user_id":        userID,
		"sku":            sku.String(),
		"price":          price,
		"purchase_id":    purchaseID,
		"transaction_id": debit.TransactionID,
		"balance_after":  refund.BalanceAfter,
	})
	return cause
}

// claimRequest 冪等性キーを確保する
// 完了済みの場合は保存済みの結果を返し、再実行してよい場合は処理中のリクエストを返す
func (s *PurchaseApplicationService) claimRequest(ctx context.Context, idempotencyKey, userID string, sku key.SKU) (*purchase.Request, *PurchaseKeyResponse, error) {
	request, err := purchase.NewRequest(idempotencyKey, userID, sku)
	if err != nil {
		return nil, nil, err
	}

	created, err := s.requestRepo.Create(ctx, request)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create purchase request: %w", err)
	}
	if created {
		return request, nil, nil
	}

	existing, err := s.requestRepo.FindByKey(ctx, idempotencyKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find purchase request: %w", err)
	}
	if !existing.Matches(userID, sku) {
		return nil, nil, purchase.ErrIdempotencyKeyReused
	}

	switch existing.Status() {
	case purchase.RequestStatusCompleted:
		replay, err := s.replay(ctx, existing)
		return nil, replay, err

	case purchase.RequestStatusPending:
		if !existing.IsStale(s.now(), s.pendingTimeout) {
			return nil, nil, purchase.ErrRequestInProgress
		}
		partial := &purchase.PartialCommitError{Stage: "pending_timeout", UserID: userID, Err: purchase.ErrRequestInProgress}
		existing.MarkPartial(partial.Error())
		if err := s.requestRepo.Update(ctx, existing); err != nil {
			s.logger.Error(ctx, "Failed to mark stale purchase request", err, map[string]interface{}{
				"idempotency_key": idempotencyKey,
			})
		}
		s.metrics.RecordPartialCommit(ctx, partial.Stage)
		return nil, nil, partial

	case purchase.RequestStatusFailed:
		reclaimed, err := s.requestRepo.Reclaim(ctx, idempotencyKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reclaim purchase request: %w", err)
		}
		if !reclaimed {
			return nil, nil, purchase.ErrRequestInProgress
		}
		now := s.now()
		return purchase.RestoreRequest(idempotencyKey, userID, sku, purchase.RequestStatusPending, nil, nil, existing.CreatedAt(), now), nil, nil

	default:
		reason := ""
		if existing.FailureReason() != nil {
			reason = *existing.FailureReason()
		}
		return nil, nil, &purchase.PartialCommitError{Stage: "unreconciled", UserID: userID, Err: errors.New(reason)}
	}
}

// replay 完了済みリクエストの購入結果を組み立てる
func (s *PurchaseApplicationService) replay(ctx context.Context, request *purchase.Request) (*PurchaseKeyResponse, error) {
	if request.PurchaseID() == nil {
		return nil, fmt.Errorf("completed purchase request %s has no purchase id", request.IdempotencyKey())
	}
	record, err := s.purchaseRepo.FindByID(ctx, *request.PurchaseID())
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	k, err := s.keyRepo.FindByID(ctx, record.KeyID())
	if err != nil {
		return nil, fmt.Errorf("failed to load key: %w", err)
	}
	u, err := s.userRepo.FindByID(ctx, record.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &PurchaseKeyResponse{
		PurchaseID:   record.PurchaseID(),
		KeyID:        k.KeyID(),
		KeyContent:   k.Content(),
		Game:         record.SKU().Game,
		Duration:     record.SKU().Duration,
		Price:        record.Price(),
		BalanceAfter: u.Balance(),
		CreatedAt:    record.CreatedAt(),
		Replayed:     true,
	}, nil
}

// finishRequest 購入結果をリクエストに記録する
func (s *PurchaseApplicationService) finishRequest(ctx context.Context, request *purchase.Request, resp *PurchaseKeyResponse, err error) {
	switch {
	case err == nil:
		request.Complete(resp.PurchaseID)
	case errors.Is(err, purchase.ErrPartialCommitFailure):
		request.MarkPartial(err.Error())
	default:
		request.Fail(err.Error())
	}

	if updateErr := s.requestRepo.Update(ctx, request); updateErr != nil {
		s.logger.Error(ctx, "Failed to update purchase request", updateErr, map[string]interface{}{
			"idempotency_key": request.IdempotencyKey(),
			"status":          request.Status().String(),
		})
	}
}

func (s *PurchaseApplicationService) invalidateStock(ctx context.Context) {
	if s.stockCache == nil {
		return
	}
	if err := s.stockCache.InvalidateStock(ctx); err != nil {
		s.logger.Warn(ctx, "Failed to invalidate stock cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, purchase.ErrPartialCommitFailure):
		return outcomePartial
	case errors.Is(err, user.ErrBanned):
		return outcomeBanned
	case errors.Is(err, key.ErrOutOfStock):
		return outcomeOutOfStock
	case errors.Is(err, user.ErrInsufficientFunds):
		return outcomeInsufficientFunds
	case errors.Is(err, errs.ErrValidation):
		return outcomeInvalid
	default:
		return outcomeFailed
	}
}
