package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/bekzod-dev/botforge/pkg/logger"
)

const genericUserMessage = "❌ Xatolik yuz berdi. Keyinroq urinib ko'ring."

// Handler is the single sink for handler errors: it logs, forwards
// high-severity failures to Sentry, and yields the text to show the
// user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, sentryEnabled: sentryEnabled}
}

// Handle reports err and returns the user-facing message plus the
// retryable flag. Errors that are not AppErrors count as high
// severity unknowns.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		h.report(ctx, "unclassified error", []slog.Attr{
			slog.String("message", err.Error()),
		})
		if h.sentryEnabled {
			h.capture(err, nil)
		}
		return genericUserMessage, false
	}

	h.report(ctx, "handler error", []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	})

	if h.sentryEnabled && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
		h.capture(err, appErr)
	}

	msg := appErr.UserMessage
	if msg == "" {
		msg = genericUserMessage
	}
	return msg, appErr.Retryable
}

func (h *Handler) report(ctx context.Context, msg string, attrs []slog.Attr) {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}

	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	h.log.Error(msg, args...)
}

func (h *Handler) capture(err error, appErr *AppError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		if appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}
			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}
		sentry.CaptureException(err)
	})
}
