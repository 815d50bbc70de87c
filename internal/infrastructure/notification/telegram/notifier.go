// Package telegram Telegram Bot APIによる通知
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sender メッセージ送信を抽象化（*tgbotapi.BotAPIが満たす）
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier ユーザーIDをチャットIDとしてTelegramに送信するNotifier
type Notifier struct {
	bot    sender
	tracer trace.Tracer
}

// NewNotifier ボットトークンから新しいNotifierを作成
func NewNotifier(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newNotifier(bot), nil
}

func newNotifier(bot sender) *Notifier {
	return &Notifier{
		bot:    bot,
		tracer: otel.Tracer("telegram"),
	}
}

// Notify ユーザーにメッセージを送信
func (n *Notifier) Notify(ctx context.Context, userID string, message string) error {
	_, span := n.tracer.Start(ctx, "TelegramNotifier.Notify")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		err = fmt.Errorf("user id %q is not a telegram chat id: %w", userID, err)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "invalid chat id")
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "send failed")
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "message sent")
	return nil
}
