package referral

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"keyshop-server/internal/domain/errs"
	"keyshop-server/internal/domain/notification"
	"keyshop-server/internal/domain/service"
	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
	otelinfra "keyshop-server/internal/infrastructure/observability/otel"
)

// MockUserRepository モックユーザーリポジトリ
type MockUserRepository struct {
	mock.Mock
	user.UserRepository
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) SetReferredBy(ctx context.Context, userID, referrerID string) error {
	return m.Called(ctx, userID, referrerID).Error(0)
}

// MockLedger モック残高サービス
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AdjustBalance(ctx context.Context, userID string, delta int64, txType transaction.TransactionType, referenceID string, metadata map[string]interface{}) (*service.LedgerEntry, error) {
	args := m.Called(ctx, userID, delta, txType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LedgerEntry), args.Error(1)
}

// WithRetry コールバックをそのまま1回実行する
func (m *MockLedger) WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

// MockNotifier モック通知
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID string, message string) error {
	return m.Called(ctx, userID, message).Error(0)
}

type mocks struct {
	users    *MockUserRepository
	ledger   *MockLedger
	notifier *MockNotifier
}

func newTestService(t *testing.T, m mocks) *ReferralApplicationService {
	t.Helper()
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)
	logger := otelinfra.NewLoggerWithWriter(otel.Tracer("test"), io.Discard)
	return NewReferralApplicationService(m.users, m.ledger, m.notifier, 50, logger, metrics)
}

func TestReferralApplicationService_RegisterReferral(t *testing.T) {
	referrer := "ref1"

	tests := []struct {
		name       string
		req        *RegisterReferralRequest
		setupMocks func(mocks)
		want       *RegisterReferralResponse
		wantErr    error
	}{
		{
			name: "正常系: 紹介者にボーナスを付与して通知",
			req:  &RegisterReferralRequest{UserID: "new1", ReferrerID: "ref1"},
			setupMocks: func(m mocks) {
				m.users.On("GetOrCreate", mock.Anything, "new1").Return(user.MustNewUser("new1", 0, false, nil, 1), nil)
				m.ledger.On("WithRetry", mock.Anything)
				m.users.On("SetReferredBy", mock.Anything, "new1", "ref1").Return(nil)
				m.ledger.On("AdjustBalance", mock.Anything, "ref1", int64(50), transaction.TransactionTypeReferral, "new1").
					Return(&service.LedgerEntry{TransactionID: "tx1", UserID: "ref1", Delta: 50, BalanceBefore: 10, BalanceAfter: 60}, nil)
				m.notifier.On("Notify", mock.Anything, "ref1", notification.ReferralCredited("new1", 50)).Return(nil)
			},
			want: &RegisterReferralResponse{Status: StatusCredited, Bonus: 50, ReferrerBalance: 60},
		},
		{
			name: "正常系: 通知の失敗は結果に影響しない",
			req:  &RegisterReferralRequest{UserID: "new1", ReferrerID: "ref1"},
			setupMocks: func(m mocks) {
				m.users.On("GetOrCreate", mock.Anything, "new1").Return(user.MustNewUser("new1", 0, false, nil, 1), nil)
				m.ledger.On("WithRetry", mock.Anything)
				m.users.On("SetReferredBy", mock.Anything, "new1", "ref1").Return(nil)
				m.ledger.On("AdjustBalance", mock.Anything, "ref1", int64(50), transaction.TransactionTypeReferral, "new1").
					Return(&service.LedgerEntry{TransactionID: "tx1", UserID: "ref1", Delta: 50, BalanceAfter: 50}, nil)
				m.notifier.On("Notify", mock.Anything, "ref1", mock.Anything).Return(errors.New("blocked by user"))
			},
			want: &RegisterReferralResponse{Status: StatusCredited, Bonus: 50, ReferrerBalance: 50},
		},
		{
			name:       "正常系: 自分自身の紹介は何もしない",
			req:        &RegisterReferralRequest{UserID: "new1", ReferrerID: "new1"},
			setupMocks: func(m mocks) {},
			want:       &RegisterReferralResponse{Status: StatusSelfReferral},
		},
		{
			name: "正常系: 紹介者が設定済み",
			req:  &RegisterReferralRequest{UserID: "new1", ReferrerID: "ref2"},
			setupMocks: func(m mocks) {
				m.users.On("GetOrCreate", mock.Anything, "new1").Return(user.MustNewUser("new1", 0, false, &referrer, 1), nil)
			},
			want: &RegisterReferralResponse{Status: StatusAlreadyReferred},
		},
		{
			name: "正常系: 同時登録で条件付き更新に負けた場合は何もしない",
			req:  &RegisterReferralRequest{UserID: "new1", ReferrerID: "ref1"},
			setupMocks: func(m mocks) {
				m.users.On("GetOrCreate", mock.Anything, "new1").Return(user.MustNewUser("new1", 0, false, nil, 1), nil)
				m.ledger.On("WithRetry", mock.Anything)
				m.users.On("SetReferredBy", mock.Anything, "new1", "ref1").Return(user.ErrAlreadyReferred)
			},
			want: &RegisterReferralResponse{Status: StatusAlreadyReferred},
		},
		{
			name: "異常系: BAN済みユーザー",
			req:  &RegisterReferralRequest{UserID: "new1", ReferrerID: "ref1"},
			setupMocks: func(m mocks) {
				m.users.On("GetOrCreate", mock.Anything, "new1").Return(user.MustNewUser("new1", 0, true, nil, 1), nil)
			},
			wantErr: user.ErrBanned,
		},
		{
			name:       "異常系: 不正な紹介者ID",
			req:        &RegisterReferralRequest{UserID: "new1", ReferrerID: "bad id"},
			setupMocks: func(m mocks) {},
			wantErr:    errs.ErrValidation,
		},
		{
			name: "異常系: ボーナス付与の失敗",
			req:  &RegisterReferralRequest{UserID: "new1", ReferrerID: "ref1"},
			setupMocks: func(m mocks) {
				m.users.On("GetOrCreate", mock.Anything, "new1").Return(user.MustNewUser("new1", 0, false, nil, 1), nil)
				m.ledger.On("WithRetry", mock.Anything)
				m.users.On("SetReferredBy", mock.Anything, "new1", "ref1").Return(nil)
				m.ledger.On("AdjustBalance", mock.Anything, "ref1", int64(50), transaction.TransactionTypeReferral, "new1").
					Return(nil, errs.ErrStorageUnavailable)
			},
			wantErr: errs.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mocks{
				users:    new(MockUserRepository),
				ledger:   new(MockLedger),
				notifier: new(MockNotifier),
			}
			tt.setupMocks(m)
			svc := newTestService(t, m)

			got, err := svc.RegisterReferral(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				m.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			m.users.AssertExpectations(t)
			m.ledger.AssertExpectations(t)
			m.notifier.AssertExpectations(t)
			if tt.want.Status != StatusCredited {
				m.ledger.AssertNotCalled(t, "AdjustBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
