package logger

import (
	"context"
	"log/slog"
	"strings"
)

// Attribute keys whose values never reach a log sink. Bot tokens and
// phone numbers are the ones this project actually handles; the rest
// cover misuse.
var maskedKeys = []string{
	"token",
	"bot_token",
	"password",
	"secret",
	"api_key",
	"authorization",
	"phone",
	"phone_number",
}

// MaskingHandler replaces sensitive attribute values with *** before
// handing the record to the wrapped handler.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MaskingHandler{next: h.next.WithAttrs(attrs)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		if mustMask(a.Key) {
			a.Value = slog.StringValue("***")
		}
		out.AddAttrs(a)
		return true
	})
	return h.next.Handle(ctx, out)
}

func mustMask(key string) bool {
	for _, k := range maskedKeys {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}
