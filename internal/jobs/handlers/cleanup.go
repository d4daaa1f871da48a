package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bekzod-dev/botforge/internal/jobs"
)

// SessionSweeper removes onboarding sessions that went stale.
type SessionSweeper interface {
	ClearExpired(ctx context.Context, maxAge time.Duration) (int, error)
}

// CleanupHandler sweeps expired onboarding sessions off redis.
type CleanupHandler struct {
	sessions SessionSweeper
	log      *slog.Logger
}

func NewCleanupHandler(sessions SessionSweeper, log *slog.Logger) *CleanupHandler {
	return &CleanupHandler{sessions: sessions, log: log}
}

func (h *CleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.CleanupDataPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "cleanup: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		}
		return err
	}

	removed, err := h.sessions.ClearExpired(ctx, payload.OlderThan)
	if err != nil {
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "cleanup: expired sessions removed", slog.Int("removed", removed))
	}

	return nil
}
