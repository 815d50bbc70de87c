package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"keyshop-server/internal/domain/transaction"
	"keyshop-server/internal/domain/user"
)

// MockUserRepository モックユーザーリポジトリ
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetOrCreate(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) SaveBalance(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) SetBanned(ctx context.Context, userID string, banned bool) error {
	args := m.Called(ctx, userID, banned)
	return args.Error(0)
}

func (m *MockUserRepository) SetReferredBy(ctx context.Context, userID, referrerID string) error {
	args := m.Called(ctx, userID, referrerID)
	return args.Error(0)
}

// MockTransactionRepository モック仕訳リポジトリ
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *transaction.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkReversed(ctx context.Context, transactionID string) error {
	return m.Called(ctx, transactionID).Error(0)
}

func (m *MockTransactionRepository) FindByReferenceID(ctx context.Context, referenceID string) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

// MockTransactionManager モックトランザクションマネージャー
type MockTransactionManager struct {
	mock.Mock
	inTx bool
}

func (m *MockTransactionManager) InTransaction(ctx context.Context) bool {
	return m.inTx
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func newTestLedger(userRepo *MockUserRepository, txRepo *MockTransactionRepository, txManager *MockTransactionManager) *LedgerService {
	s := NewLedgerService(userRepo, txRepo, txManager, 3)
	s.backoff = func(int) time.Duration { return 0 }
	return s
}

func TestLedgerService_AdjustBalance(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		delta      int64
		txType     transaction.TransactionType
		setupMocks func(*MockUserRepository, *MockTransactionRepository, *MockTransactionManager)
		wantAfter  int64
		wantErr    error
		wantErrMsg string
	}{
		{
			name:   "正常系: 入金",
			userID: "user1",
			delta:  500,
			txType: transaction.TransactionTypeGrant,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Once()
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 100, false, nil, 1), nil).Once()
				ur.On("SaveBalance", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
					return u.Balance() == 600 && u.Version() == 1
				})).Return(nil).Once()
				tr.On("Save", mock.Anything, mock.MatchedBy(func(tx *transaction.Transaction) bool {
					return tx.Amount() == 500 && tx.BalanceBefore() == 100 && tx.BalanceAfter() == 600 &&
						tx.TransactionType() == transaction.TransactionTypeGrant
				})).Return(nil).Once()
			},
			wantAfter: 600,
		},
		{
			name:   "正常系: 競合後のリトライで成功",
			userID: "user1",
			delta:  -100,
			txType: transaction.TransactionTypeConsume,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Twice()
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 300, false, nil, 1), nil).Once()
				ur.On("SaveBalance", mock.Anything, mock.Anything).Return(user.ErrVersionConflict).Once()
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 250, false, nil, 2), nil).Once()
				ur.On("SaveBalance", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
					return u.Balance() == 150
				})).Return(nil).Once()
				tr.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
			},
			wantAfter: 150,
		},
		{
			name:   "異常系: 残高不足",
			userID: "user1",
			delta:  -500,
			txType: transaction.TransactionTypeConsume,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Once()
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 100, false, nil, 1), nil).Once()
			},
			wantErr: user.ErrInsufficientFunds,
		},
		{
			name:   "異常系: リトライ上限超過",
			userID: "user1",
			delta:  10,
			txType: transaction.TransactionTypeGrant,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Times(3)
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 0, false, nil, 1), nil).Times(3)
				ur.On("SaveBalance", mock.Anything, mock.Anything).Return(user.ErrVersionConflict).Times(3)
			},
			wantErr: user.ErrVersionConflict,
		},
		{
			name:   "異常系: 仕訳保存エラー",
			userID: "user1",
			delta:  10,
			txType: transaction.TransactionTypeGrant,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Once()
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 0, false, nil, 1), nil).Once()
				ur.On("SaveBalance", mock.Anything, mock.Anything).Return(nil).Once()
				tr.On("Save", mock.Anything, mock.Anything).Return(errors.New("database error")).Once()
			},
			wantErrMsg: "failed to save transaction: database error",
		},
		{
			name:       "異常系: 変更量が0",
			userID:     "user1",
			delta:      0,
			txType:     transaction.TransactionTypeGrant,
			setupMocks: func(*MockUserRepository, *MockTransactionRepository, *MockTransactionManager) {},
			wantErr:    user.ErrInvalidAmount,
		},
		{
			name:       "異常系: 無効なユーザーID",
			userID:     "bad id",
			delta:      10,
			txType:     transaction.TransactionTypeGrant,
			setupMocks: func(*MockUserRepository, *MockTransactionRepository, *MockTransactionManager) {},
			wantErr:    user.ErrInvalidUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ur := new(MockUserRepository)
			tr := new(MockTransactionRepository)
			tm := new(MockTransactionManager)
			tt.setupMocks(ur, tr, tm)

			s := newTestLedger(ur, tr, tm)
			got, err := s.AdjustBalance(context.Background(), tt.userID, tt.delta, tt.txType, "ref-1", nil)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.wantErrMsg != "":
				assert.EqualError(t, err, tt.wantErrMsg)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantAfter, got.BalanceAfter)
				assert.Equal(t, tt.delta, got.Delta)
				assert.NotEmpty(t, got.TransactionID)
			}

			ur.AssertExpectations(t)
			tr.AssertExpectations(t)
			tm.AssertExpectations(t)
		})
	}
}

func TestLedgerService_AdjustBalance_InOuterTransaction(t *testing.T) {
	ur := new(MockUserRepository)
	tr := new(MockTransactionRepository)
	tm := &MockTransactionManager{inTx: true}

	// デッドロックで外側のトランザクションは既にロールバック済みのため、同じトランザクションで再試行してはいけない
	tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil).Once()
	ur.On("GetOrCreate", mock.Anything, "ref1").Return(nil, user.ErrVersionConflict).Once()

	s := newTestLedger(ur, tr, tm)
	got, err := s.AdjustBalance(context.Background(), "ref1", 50, transaction.TransactionTypeReferral, "new1", nil)

	assert.ErrorIs(t, err, user.ErrVersionConflict)
	assert.Nil(t, got)
	ur.AssertExpectations(t)
	tr.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	tm.AssertNumberOfCalls(t, "WithTransaction", 1)
}

func TestLedgerService_WithRetry(t *testing.T) {
	tests := []struct {
		name      string
		inTx      bool
		results   []error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "正常系: 競合後にトランザクションごと再実行",
			results:   []error{user.ErrVersionConflict, nil},
			wantCalls: 2,
		},
		{
			name:      "正常系: 競合以外のエラーは再試行しない",
			results:   []error{user.ErrInsufficientFunds},
			wantCalls: 1,
			wantErr:   user.ErrInsufficientFunds,
		},
		{
			name:      "異常系: 上限まで競合",
			results:   []error{user.ErrVersionConflict, user.ErrVersionConflict, user.ErrVersionConflict},
			wantCalls: 3,
			wantErr:   user.ErrVersionConflict,
		},
		{
			name:      "異常系: 外側のトランザクション内では1回だけ実行",
			inTx:      true,
			results:   []error{user.ErrVersionConflict, nil},
			wantCalls: 1,
			wantErr:   user.ErrVersionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := &MockTransactionManager{inTx: tt.inTx}
			tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)

			s := newTestLedger(new(MockUserRepository), new(MockTransactionRepository), tm)
			calls := 0
			err := s.WithRetry(context.Background(), func(ctx context.Context) error {
				err := tt.results[calls]
				calls++
				return err
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestLedgerService_Refund(t *testing.T) {
	debit := &LedgerEntry{TransactionID: "tx-debit", UserID: "user1", Delta: -100, BalanceBefore: 100, BalanceAfter: 0}

	tests := []struct {
		name       string
		debit      *LedgerEntry
		setupMocks func(*MockUserRepository, *MockTransactionRepository, *MockTransactionManager)
		wantAfter  int64
		wantErr    error
	}{
		{
			name:  "正常系: 返金を記録し元の引き落としを取り消し済みにする",
			debit: debit,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 0, false, nil, 2), nil).Once()
				ur.On("SaveBalance", mock.Anything, mock.Anything).Return(nil).Once()
				tr.On("Save", mock.Anything, mock.MatchedBy(func(tx *transaction.Transaction) bool {
					return tx.TransactionType() == transaction.TransactionTypeRefund && tx.Amount() == 100
				})).Return(nil).Once()
				tr.On("MarkReversed", mock.Anything, "tx-debit").Return(nil).Once()
			},
			wantAfter: 100,
		},
		{
			name:  "異常系: 取り消しに失敗したら返金も確定しない",
			debit: debit,
			setupMocks: func(ur *MockUserRepository, tr *MockTransactionRepository, tm *MockTransactionManager) {
				tm.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
				ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 0, false, nil, 2), nil).Once()
				ur.On("SaveBalance", mock.Anything, mock.Anything).Return(nil).Once()
				tr.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
				tr.On("MarkReversed", mock.Anything, "tx-debit").Return(transaction.ErrTransactionNotFound).Once()
			},
			wantErr: transaction.ErrTransactionNotFound,
		},
		{
			name:       "異常系: 入金の仕訳は取り消せない",
			debit:      &LedgerEntry{TransactionID: "tx-grant", UserID: "user1", Delta: 100},
			setupMocks: func(*MockUserRepository, *MockTransactionRepository, *MockTransactionManager) {},
			wantErr:    user.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ur := new(MockUserRepository)
			tr := new(MockTransactionRepository)
			tm := new(MockTransactionManager)
			tt.setupMocks(ur, tr, tm)

			s := newTestLedger(ur, tr, tm)
			got, err := s.Refund(context.Background(), tt.debit, "purchase1", nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAfter, got.BalanceAfter)
				assert.Equal(t, int64(100), got.Delta)
			}
			ur.AssertExpectations(t)
			tr.AssertExpectations(t)
		})
	}
}

func TestLedgerService_Balance(t *testing.T) {
	ur := new(MockUserRepository)
	ur.On("GetOrCreate", mock.Anything, "user1").Return(user.MustNewUser("user1", 42, false, nil, 1), nil)

	s := NewLedgerService(ur, new(MockTransactionRepository), new(MockTransactionManager), 0)
	got, err := s.Balance(context.Background(), "user1")

	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
	assert.Equal(t, DefaultMaxRetries, s.maxRetries)
}
