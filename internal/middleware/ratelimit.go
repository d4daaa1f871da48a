// Package middleware holds the cross-cutting wrappers of the builder
// bot: HTTP request logging, per-handler metrics, update deduplication
// and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/ratelimit"
)

// RateLimitMiddleware throttles owners on two levels: a general
// per-user cap applied to every update, and per-action budgets checked
// by handlers before expensive operations.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimitMiddleware{limiter: limiter, rules: rules, log: log}
}

// Handle applies the per-user cap. A broken limiter never blocks
// traffic; a capped user gets a wait message instead of a handler run.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil || c.Sender() == nil {
			return next(c)
		}

		userID := c.Sender().ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		limit, window, err := m.rules.GetPerUserLimit()
		if err != nil {
			m.log.Error("per-user limit unavailable", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		res, err := m.limiter.Check(context.Background(), "user:"+strconv.FormatInt(userID, 10), limit, window)
		if err != nil {
			m.log.Warn("limiter unavailable, admitting", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}
		if !res.Allowed {
			m.log.Warn("user over message cap", slog.Int64("user_id", userID))
			return c.Send("⏳ Juda ko'p so'rov. Birozdan keyin urinib ko'ring.")
		}

		return next(c)
	}
}

// CheckAction spends one unit of the action's budget (bot creation,
// broadcast, contest creation). Over budget returns a rate limit
// AppError carrying the wait time.
func (m *RateLimitMiddleware) CheckAction(ctx context.Context, userID int64, action ratelimit.Action) error {
	if m.limiter == nil || m.rules == nil || !m.rules.Enabled() {
		return nil
	}
	if m.rules.IsWhitelisted(userID) {
		return nil
	}

	limit, window, err := m.rules.GetActionLimit(action)
	if err != nil {
		m.log.Error("action limit unavailable", slog.String("action", string(action)), slog.Any("error", err))
		return nil
	}

	key := "action:" + string(action) + ":" + strconv.FormatInt(userID, 10)
	res, err := m.limiter.Check(ctx, key, limit, window)
	if err != nil {
		m.log.Warn("limiter unavailable, admitting", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}

	if !res.Allowed {
		wait := int(time.Until(res.ResetAt).Seconds())
		if wait < 1 {
			wait = 1
		}
		return apperrors.NewRateLimitError(wait)
	}
	return nil
}
