package transaction

import (
	"context"
)

// TransactionRepository 残高仕訳リポジトリインターフェース
type TransactionRepository interface {
	// Save 仕訳を追加
	Save(ctx context.Context, transaction *Transaction) error

	// FindByUserID ユーザーIDで仕訳一覧を新しい順に取得（ページネーション対応）
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error)

	// FindByReferenceID 関連IDで仕訳一覧を取得
	FindByReferenceID(ctx context.Context, referenceID string) ([]*Transaction, error)

	// MarkReversed 完了済みの仕訳を取り消し済みにする
	MarkReversed(ctx context.Context, transactionID string) error
}
