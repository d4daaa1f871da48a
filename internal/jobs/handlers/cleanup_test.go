package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekzod-dev/botforge/internal/jobs"
)

type fakeSweeper struct {
	gotMaxAge time.Duration
	removed   int
	err       error
}

func (f *fakeSweeper) ClearExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	f.gotMaxAge = maxAge
	return f.removed, f.err
}

func TestCleanupHandler_ProcessTask(t *testing.T) {
	sweeper := &fakeSweeper{removed: 3}
	h := NewCleanupHandler(sweeper, nil)

	payload, err := json.Marshal(jobs.CleanupDataPayload{OlderThan: 48 * time.Hour})
	require.NoError(t, err)

	err = h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeCleanupData, payload))
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, sweeper.gotMaxAge)
}

func TestCleanupHandler_BadPayload(t *testing.T) {
	h := NewCleanupHandler(&fakeSweeper{}, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeCleanupData, []byte("{broken")))
	assert.Error(t, err)
}
