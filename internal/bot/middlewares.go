package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/handlers"
	"github.com/bekzod-dev/botforge/internal/domain"
	errors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/repository"
)

const fallbackUserMessage = "❌ Xatolik yuz berdi. Keyinroq urinib ko'ring."

// RecoveryMiddleware turns a handler panic into a logged error and an
// apology message. The update loop must survive any single handler.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log.Error("handler panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))

				msg := fallbackUserMessage
				if errHandler != nil {
					appErr := errors.NewDatabaseError(fmt.Errorf("panic: %v", r))
					if m, _ := errHandler.Handle(context.Background(), appErr); m != "" {
						msg = m
					}
				}
				if c != nil {
					if sendErr := c.Send(msg); sendErr != nil {
						log.Error("panic apology undeliverable", slog.Any("error", sendErr))
					}
				}
				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware is the outlet for handler errors: classify,
// report, tell the user something they can act on. Handlers below this
// never talk to the user about failures themselves.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			msg := fallbackUserMessage
			if errHandler != nil {
				if m, _ := errHandler.Handle(context.Background(), err); m != "" {
					msg = m
				}
			}
			if c != nil {
				_ = c.Send(msg)
			}
			return nil
		}
	}
}

// LoggingMiddleware logs each update with its action (command text or
// callback data) and how long the handler took.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			var userID int64
			var action string
			if c != nil {
				if s := c.Sender(); s != nil {
					userID = s.ID
				}
				if cb := c.Callback(); cb != nil {
					action = cb.Data
				} else {
					action = c.Text()
				}
			}

			start := time.Now()
			err := next(c)
			log.Info("update handled",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("took", time.Since(start)),
				slog.Any("error", err))
			return err
		}
	}
}

// AuthMiddleware upserts the sender into the platform users table, so
// every handler below can assume the row exists.
func AuthMiddleware(users repository.UserRepository, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			if users == nil || c == nil || c.Sender() == nil {
				return next(c)
			}

			s := c.Sender()
			_, err := users.Upsert(context.Background(), &domain.User{
				TelegramID: s.ID,
				FirstName:  s.FirstName,
				LastName:   s.LastName,
				Username:   s.Username,
			})
			if err != nil {
				log.Error("user upsert failed", slog.Int64("user_id", s.ID), slog.Any("error", err))
				return err
			}
			return next(c)
		}
	}
}

// LastActiveMiddleware stamps the sender's last_active_at off the
// request path. A lost stamp costs nothing.
func LastActiveMiddleware(users repository.UserRepository) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			if users != nil && c != nil && c.Sender() != nil {
				id := c.Sender().ID
				go func() {
					_ = users.TouchLastActive(context.Background(), id)
				}()
			}
			return next(c)
		}
	}
}
