package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/handlers"
	"github.com/bekzod-dev/botforge/internal/idempotency"
)

const dedupTTL = 24 * time.Hour

// Idempotency drops redelivered updates. The key comes from the
// callback id or the message id, which Telegram keeps stable across
// redeliveries of the same update.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler { return next }
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			_, err := manager.Execute(context.Background(), key, dedupTTL,
				func(context.Context) (interface{}, error) {
					return nil, next(c)
				})
			if errors.Is(err, idempotency.ErrRequestInProgress) {
				return nil
			}
			if err != nil {
				log.Error("deduplicated handler failed", slog.String("key", key), slog.Any("error", err))
			}
			return err
		}
	}
}

func updateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return idempotency.GenerateKey("cb", cb.ID)
		}
		if cb.Message != nil {
			var chatID int64
			if cb.Message.Chat != nil {
				chatID = cb.Message.Chat.ID
			}
			return idempotency.GenerateKey("cb-msg", chatID, cb.Message.ID)
		}
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		var chatID int64
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return idempotency.GenerateKey("msg", chatID, msg.ID)
	}

	return ""
}
