// Package handlers contains the asynq task processors.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bekzod-dev/botforge/internal/broadcast"
	"github.com/bekzod-dev/botforge/internal/jobs"
)

// BroadcastHandler runs queued broadcast deliveries.
type BroadcastHandler struct {
	sender *broadcast.Sender
	log    *slog.Logger
}

func NewBroadcastHandler(sender *broadcast.Sender, log *slog.Logger) *BroadcastHandler {
	return &BroadcastHandler{sender: sender, log: log}
}

func (h *BroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "broadcast: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		}
		return err
	}

	return h.sender.Run(ctx, payload.BroadcastID)
}
