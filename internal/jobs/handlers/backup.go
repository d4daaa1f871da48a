package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bekzod-dev/botforge/internal/backup"
)

// BackupHandler runs scheduled database dumps.
type BackupHandler struct {
	runner *backup.Runner
	log    *slog.Logger
}

func NewBackupHandler(runner *backup.Runner, log *slog.Logger) *BackupHandler {
	return &BackupHandler{runner: runner, log: log}
}

func (h *BackupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	path, err := h.runner.Run(ctx)
	if err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "backup: run failed", slog.Any("error", err))
		}
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "backup: archive written", slog.String("path", path))
	}

	return nil
}
