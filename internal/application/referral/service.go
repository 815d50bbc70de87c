package referral

import (
	"context"
	"errors"
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
	WithRetry(ctx context.Context, fn func(ctx context.Context) error) error
	AdjustBalance(ctx context.Context, userID string, delta int64, txType transaction.TransactionType, referenceID string, metadata map[string]interface{}) (*service.LedgerEntry, error)
}

// ReferralApplicationService 紹介アプリケーションサービス
type ReferralApplicationService struct {
	userRepo  user.UserRepository
	ledger   Ledger
	notifier notification.Notifier
	bonus    int64
	logger   *otelinfra.Logger
	metrics  *otelinfra.Metrics
	tracer   trace.Tracer
}

// NewReferralApplicationService 新しいReferralApplicationServiceを作成
func NewReferralApplicationService(
	userRepo user.UserRepository,
	ledger Ledger,
	notifier notification.Notifier,
	bonus int64,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *ReferralApplicationService {
	if notifier == nil {
		notifier = notification.NoopNotifier{}
	}
	return &ReferralApplicationService{
		userRepo: userRepo,
		ledger:   ledger,
		notifier: notifier,
		bonus:    bonus,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("referral-service"),
	}
}

// RegisterReferral 新規ユーザーの紹介者を設定し、紹介者にボーナスを付与する
// 紹介者の設定とボーナス付与は同一トランザクションで行い、設定済みの場合は何もしない
// ロック競合時はトランザクション全体を再実行する
func (s *ReferralApplicationService) RegisterReferral(ctx context.Context, req *RegisterReferralRequest) (*RegisterReferralResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ReferralApplicationService.RegisterReferral")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("referrer_id", req.ReferrerID),
	)

	if err := user.ValidateUserID(req.UserID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	if err := user.ValidateUserID(req.ReferrerID); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	if req.UserID == req.ReferrerID {
		span.SetAttributes(attribute.String("status", string(StatusSelfReferral)))
		return &RegisterReferralResponse{Status: StatusSelfReferral}, nil
	}

	newUser, err := s.userRepo.GetOrCreate(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := newUser.EnsureActive(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	if newUser.ReferredBy() != nil {
		span.SetAttributes(attribute.String("status", string(StatusAlreadyReferred)))
		return &RegisterReferralResponse{Status: StatusAlreadyReferred}, nil
	}

	var entry *service.LedgerEntry
	err = s.ledger.WithRetry(ctx, func(ctx context.Context) error {
		if err := s.userRepo.SetReferredBy(ctx, req.UserID, req.ReferrerID); err != nil {
			return err
		}
		var err error
		entry, err = s.ledger.AdjustBalance(ctx, req.ReferrerID, s.bonus, transaction.TransactionTypeReferral, req.UserID, map[string]interface{}{
			"referred_user_id": req.UserID,
		})
		return err
	})

	switch {
	case errors.Is(err, user.ErrAlreadyReferred):
		span.SetAttributes(attribute.String("status", string(StatusAlreadyReferred)))
		s.logger.Info(ctx, "Referral already registered", map[string]interface{}{
			"user_id":     req.UserID,
			"referrer_id": req.ReferrerID,
		})
		return &RegisterReferralResponse{Status: StatusAlreadyReferred}, nil
	case errors.Is(err, user.ErrSelfReferral):
		span.SetAttributes(attribute.String("status", string(StatusSelfReferral)))
		return &RegisterReferralResponse{Status: StatusSelfReferral}, nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Error(ctx, "Failed to register referral", err, map[string]interface{}{
			"user_id":     req.UserID,
			"referrer_id": req.ReferrerID,
		})
		s.metrics.RecordError(ctx, "referral_failed")
		return nil, err
	}

	s.metrics.RecordBalanceAdjustment(ctx, transaction.TransactionTypeReferral.String(), entry.BalanceAfter)
	s.logger.Info(ctx, "Referral credited", map[string]interface{}{
		"user_id":        req.UserID,
		"referrer_id":    req.ReferrerID,
		"bonus":          s.bonus,
		"transaction_id": entry.TransactionID,
	})

	if err := s.notifier.Notify(ctx, req.ReferrerID, notification.ReferralCredited(req.UserID, s.bonus)); err != nil {
		s.logger.Warn(ctx, "Failed to notify referrer", map[string]interface{}{
			"referrer_id": req.ReferrerID,
			"error":       err.Error(),
		})
	}

	span.SetAttributes(attribute.String("status", string(StatusCredited)))
	span.SetStatus(otelcodes.Ok, "referral credited")
	return &RegisterReferralResponse{
		Status:          StatusCredited,
		Bonus:           s.bonus,
		ReferrerBalance: entry.BalanceAfter,
	}, nil
}
