package notification

import (
	"context"
	"sync"
	"time"
)

// ErrorHandler 非同期通知の失敗を受け取る関数
type ErrorHandler func(ctx context.Context, userID string, err error)

// AsyncNotifier 通知を別ゴルーチンで送信するNotifier
// 呼び出し元のキャンセルは引き継がず、送信はtimeoutで打ち切る
type AsyncNotifier struct {
	inner   Notifier
	timeout time.Duration
	onError ErrorHandler
	wg      sync.WaitGroup
}

// NewAsyncNotifier 新しいAsyncNotifierを作成
func NewAsyncNotifier(inner Notifier, timeout time.Duration, onError ErrorHandler) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncNotifier{inner: inner, timeout: timeout, onError: onError}
}

// Notify 送信をスケジュールして即座にnilを返す
func (n *AsyncNotifier) Notify(ctx context.Context, userID string, message string) error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if err := n.inner.Notify(sendCtx, userID, message); err != nil && n.onError != nil {
			n.onError(sendCtx, userID, err)
		}
	}()
	return nil
}

// Wait 送信中の通知がすべて終わるまで待つ
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}
