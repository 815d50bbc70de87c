package history

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/purchase"
	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

const (
	// DefaultLimit 購入履歴の既定件数
	DefaultLimit = 5
	// DefaultMaxLimit 購入履歴の最大件数
	DefaultMaxLimit = 50

	balanceHistoryDefaultLimit = 50
	balanceHistoryMaxLimit     = 100
)

// HistoryApplicationService 履歴アプリケーションサービス
type HistoryApplicationService struct {
	userRepo        user.UserRepository
	purchaseRepo    purchase.PurchaseRepository
	transactionRepo transaction.TransactionRepository
	logger          *otelinfra.Logger
	tracer          trace.Tracer
	defaultLimit    int
	maxLimit        int
}

// NewHistoryApplicationService 新しいHistoryApplicationServiceを作成
func NewHistoryApplicationService(
	userRepo user.UserRepository,
	purchaseRepo purchase.PurchaseRepository,
	transactionRepo transaction.TransactionRepository,
	logger *otelinfra.Logger,
	defaultLimit, maxLimit int,
) *HistoryApplicationService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = DefaultMaxLimit
	}
	return &HistoryApplicationService{
		userRepo:        userRepo,
		purchaseRepo:    purchaseRepo,
		transactionRepo: transactionRepo,
		logger:          logger,
		tracer:          otel.Tracer("history-service"),
		defaultLimit:    defaultLimit,
		maxLimit:        maxLimit,
	}
}

// GetHistory 購入履歴を新しい順に取得（BAN済みユーザーはErrBanned）
func (s *HistoryApplicationService) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetHistory")
	defer span.End()

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int("limit", limit),
	)

	if err := user.ValidateUserID(req.UserID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	u, err := s.userRepo.GetOrCreate(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := u.EnsureActive(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	purchases, err := s.purchaseRepo.FindByUserID(ctx, req.UserID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get purchase history", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, fmt.Errorf("failed to get purchase history: %w", err)
	}

	views := make([]PurchaseView, 0, len(purchases))
	for _, p := range purchases {
		views = append(views, PurchaseView{
			PurchaseID: p.PurchaseID(),
			KeyID:      p.KeyID(),
			Game:       p.SKU().Game,
			Duration:   p.SKU().Duration,
			Price:      p.Price(),
			KeyContent: p.KeyContent(),
			CreatedAt:  p.CreatedAt(),
		})
	}

	return &GetHistoryResponse{UserID: req.UserID, Purchases: views, Limit: limit}, nil
}

// GetBalanceHistory 残高変動の仕訳を新しい順に取得（突合用）
func (s *HistoryApplicationService) GetBalanceHistory(ctx context.Context, req *GetBalanceHistoryRequest) (*GetBalanceHistoryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "HistoryApplicationService.GetBalanceHistory")
	defer span.End()

	limit, offset := req.Limit, req.Offset
	if limit <= 0 {
		limit = balanceHistoryDefaultLimit
	}
	if limit > balanceHistoryMaxLimit {
		limit = balanceHistoryMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	if err := user.ValidateUserID(req.UserID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	var filter transaction.TransactionType
	if req.TransactionType != "" {
		tt, err := transaction.NewTransactionType(req.TransactionType)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		filter = tt
	}

	transactions, err := s.transactionRepo.FindByUserID(ctx, req.UserID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get balance history", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}

	filtered := make([]*transaction.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if filter != "" && txn.TransactionType() != filter {
			continue
		}
		filtered = append(filtered, txn)
	}

	return &GetBalanceHistoryResponse{Transactions: filtered, Limit: limit, Offset: offset}, nil
}
