package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/handlers"
	"github.com/bekzod-dev/botforge/pkg/metrics"
)

// Metrics records latency and outcome per action. The label is the
// command text or raw callback data, which keeps cardinality bounded
// by the number of buttons the builder renders.
func Metrics(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordCommand(actionLabel(c), status, time.Since(start))
		return err
	}
}

func actionLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}
	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return cb.Data
	}
	if text := c.Text(); text != "" {
		return text
	}
	return "unknown"
}
