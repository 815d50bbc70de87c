package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
)

// DefaultMaxRetries 楽観的ロック競合時の既定リトライ回数
const DefaultMaxRetries = 3

// LedgerEntry 残高変更の結果
type LedgerEntry struct {
	TransactionID string
	UserID        string
	Delta         int64
	BalanceBefore int64
	BalanceAfter  int64
}

// LedgerService 残高の原子的な変更を担うドメインサービス
// 読み取り・検証・バージョン一致時のみの書き込みを1トランザクションで行い、競合時は再試行する
type LedgerService struct {
	userRepo        user.UserRepository
	transactionRepo transaction.TransactionRepository
	txManager       transaction.TransactionManager
	maxRetries      int
	backoff         func(attempt int) time.Duration
}

// NewLedgerService 新しいLedgerServiceを作成
func NewLedgerService(
	userRepo user.UserRepository,
	transactionRepo transaction.TransactionRepository,
	txManager transaction.TransactionManager,
	maxRetries int,
) *LedgerService {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &LedgerService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		txManager:       txManager,
		maxRetries:      maxRetries,
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt-1))) * 10 * time.Millisecond
		},
	}
}

// Balance 残高を取得（未登録ユーザーは残高0で作成）
func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	u, err := s.userRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Balance(), nil
}

// WithRetry fnを新しいトランザクションで実行し、楽観的ロック競合時はトランザクションごと再試行する
// 既に外側のトランザクション内の場合は1回だけ実行し、競合はそのまま返して外側にロールバックさせる
func (s *LedgerService) WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager.InTransaction(ctx) {
		return s.txManager.WithTransaction(ctx, fn)
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}

		err := s.txManager.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, user.ErrVersionConflict) {
			return err
		}
	}

	return fmt.Errorf("failed after %d retries: %w", s.maxRetries, user.ErrVersionConflict)
}

// Refund 引き落としを取り消す
// 返金の仕訳追加と元の仕訳の取り消し済みへの更新を同一トランザクションで行う
func (s *LedgerService) Refund(
	ctx context.Context,
	debit *LedgerEntry,
	referenceID string,
	metadata map[string]interface{},
) (*LedgerEntry, error) {
	if debit == nil || debit.Delta >= 0 {
		return nil, user.ErrInvalidAmount
	}

	var refund *LedgerEntry
	err := s.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		refund, err = s.AdjustBalance(ctx, debit.UserID, -debit.Delta, transaction.TransactionTypeRefund, referenceID, metadata)
		if err != nil {
			return err
		}
		return s.transactionRepo.MarkReversed(ctx, debit.TransactionID)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// AdjustBalance 残高をdelta分変更し、仕訳を記録する
// 結果がマイナスになる場合はuser.ErrInsufficientFundsを返し、何も書き込まない
func (s *LedgerService) AdjustBalance(
	ctx context.Context,
	userID string,
	delta int64,
	txType transaction.TransactionType,
	referenceID string,
	metadata map[string]interface{},
) (*LedgerEntry, error) {
	if err := user.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, user.ErrInvalidAmount
	}

	var entry *LedgerEntry
	err := s.WithRetry(ctx, func(ctx context.Context) error {
		u, err := s.userRepo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		before := u.Balance()
		if err := u.Adjust(delta); err != nil {
			return err
		}
		if err := s.userRepo.SaveBalance(ctx, u); err != nil {
			return err
		}

		amount := delta
		if amount < 0 {
			amount = -amount
		}
		tx, err := transaction.NewTransaction(
			uuid.New().String(),
			userID,
			txType,
			amount,
			before,
			u.Balance(),
			transaction.TransactionStatusCompleted,
			metadata,
		)
		if err != nil {
			return err
		}
		if referenceID != "" {
			tx.SetReferenceID(referenceID)
		}
		if err := s.transactionRepo.Save(ctx, tx); err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}

		entry = &LedgerEntry{
			TransactionID: tx.TransactionID(),
			UserID:        userID,
			Delta:         delta,
			BalanceBefore: before,
			BalanceAfter:  u.Balance(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
