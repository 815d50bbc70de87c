package account

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"keyshop-server/internal/domain/notification"
	"keyshop-server/internal/domain/service"
	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// Ledger 残高変更を行うコンポーネント
type Ledger interface {
	AdjustBalance(ctx context.Context, userID string, delta int64, txType transaction.TransactionType, referenceID string, metadata map[string]interface{}) (*service.LedgerEntry, error)
}

// AccountApplicationService アカウント（プロフィール・入金・BAN）アプリケーションサービス
type AccountApplicationService struct {
	userRepo user.UserRepository
	ledger   Ledger
	notifier notification.Notifier
	logger   *otelinfra.Logger
	metrics  *otelinfra.Metrics
	tracer   trace.Tracer
}

// NewAccountApplicationService 新しいAccountApplicationServiceを作成
func NewAccountApplicationService(
	userRepo user.UserRepository,
	ledger Ledger,
	notifier notification.Notifier,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *AccountApplicationService {
	if notifier == nil {
		notifier = notification.NoopNotifier{}
	}
	return &AccountApplicationService{
		userRepo: userRepo,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("account-service"),
	}
}

// GetProfile プロフィールを取得（未登録ユーザーは作成される）
func (s *AccountApplicationService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	ctx, span := s.tracer.Start(ctx, "AccountApplicationService.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	if err := user.ValidateUserID(userID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	u, err := s.userRepo.GetOrCreate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to get profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &Profile{
		UserID:     u.UserID(),
		Balance:    u.Balance(),
		ReferredBy: u.ReferredBy(),
		Banned:     u.IsBanned(),
	}, nil
}

// AddFunds 運用者による入金
func (s *AccountApplicationService) AddFunds(ctx context.Context, req *AddFundsRequest) (*AddFundsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AccountApplicationService.AddFunds")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.Int64("amount", req.Amount),
	)

	if req.Amount <= 0 || req.Amount > user.MaxBalance {
		err := fmt.Errorf("%w: %d", user.ErrInvalidAmount, req.Amount)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	s.logger.Info(ctx, "Adding funds", map[string]interface{}{
		"user_id": req.UserID,
		"amount":  req.Amount,
	})

	entry, err := s.ledger.AdjustBalance(ctx, req.UserID, req.Amount, transaction.TransactionTypeGrant, "", map[string]interface{}{
		"source": "operator",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to add funds", err, map[string]interface{}{
			"user_id": req.UserID,
			"amount":  req.Amount,
		})
		s.metrics.RecordError(ctx, "add_funds_failed")
		return nil, err
	}

	s.metrics.RecordBalanceAdjustment(ctx, transaction.TransactionTypeGrant.String(), entry.BalanceAfter)
	s.logger.Info(ctx, "Funds added", map[string]interface{}{
		"user_id":        req.UserID,
		"transaction_id": entry.TransactionID,
		"balance_before": entry.BalanceBefore,
		"balance_after":  entry.BalanceAfter,
	})
	s.notify(ctx, req.UserID, notification.FundsAdded(req.Amount, entry.BalanceAfter))

	span.SetStatus(otelcodes.Ok, "funds added")
	return &AddFundsResponse{
		UserID:        req.UserID,
		TransactionID: entry.TransactionID,
		Amount:        req.Amount,
		Balance:       entry.BalanceAfter,
	}, nil
}

// BanUser ユーザーをBANする
func (s *AccountApplicationService) BanUser(ctx context.Context, userID string) error {
	return s.setBanned(ctx, userID, true)
}

// UnbanUser ユーザーのBANを解除する
func (s *AccountApplicationService) UnbanUser(ctx context.Context, userID string) error {
	return s.setBanned(ctx, userID, false)
}

func (s *AccountApplicationService) setBanned(ctx context.Context, userID string, banned bool) error {
	ctx, span := s.tracer.Start(ctx, "AccountApplicationService.SetBanned")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Bool("banned", banned),
	)

	if err := user.ValidateUserID(userID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	if err := s.userRepo.SetBanned(ctx, userID, banned); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to update ban flag", err, map[string]interface{}{
			"user_id": userID,
			"banned":  banned,
		})
		return fmt.Errorf("failed to update ban flag: %w", err)
	}

	s.logger.Info(ctx, "Ban flag updated", map[string]interface{}{
		"user_id": userID,
		"banned":  banned,
	})

	if banned {
		s.notify(ctx, userID, notification.Banned())
	} else {
		s.notify(ctx, userID, notification.Unbanned())
	}
	return nil
}

func (s *AccountApplicationService) notify(ctx context.Context, userID, message string) {
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		s.logger.Warn(ctx, "Failed to notify user", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
