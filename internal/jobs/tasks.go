package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task types handled by the worker.
const (
	TaskTypeBroadcast   = "broadcast:deliver"
	TaskTypeCleanupData = "data:cleanup"
	TaskTypeBackup      = "backup:run"
)

// Queue names in priority order. The worker polls critical six times
// as often as low.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type BroadcastPayload struct {
	BroadcastID int64 `json:"broadcast_id"`
}

type CleanupDataPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewBroadcastTask builds a one-shot delivery job. Broadcasts are never
// retried: a failed run stays failed and the tallies stand.
func NewBroadcastTask(broadcastID int64) (*asynq.Task, error) {
	p, err := json.Marshal(BroadcastPayload{BroadcastID: broadcastID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBroadcast, p, asynq.Queue(QueueCritical), asynq.MaxRetry(0)), nil
}

// NewCleanupDataTask prunes stale onboarding sessions.
func NewCleanupDataTask(olderThan time.Duration) (*asynq.Task, error) {
	p, err := json.Marshal(CleanupDataPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeCleanupData, p, asynq.Queue(QueueLow)), nil
}

// NewBackupTask triggers a pg_dump run. One retry covers a transient
// connection drop without hammering the database.
func NewBackupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeBackup, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}
