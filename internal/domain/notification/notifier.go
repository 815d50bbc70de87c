package notification

import (
	"context"
)

// Notifier ユーザーへの通知インターフェース
// 通知の失敗は呼び出し元の操作結果に影響させない
type Notifier interface {
	Notify(ctx context.Context, userID string, message string) error
}

// NoopNotifier 何もしないNotifier
type NoopNotifier struct{}

// Notify 何もせずnilを返す
func (NoopNotifier) Notify(ctx context.Context, userID string, message string) error {
	return nil
}
