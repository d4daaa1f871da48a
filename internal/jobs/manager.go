// Package jobs is the asynq-backed queue: producers enqueue through
// Manager, the Worker consumes, and the Scheduler registers the
// recurring cleanup and backup runs.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Manager is the producer side of the queue.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueBroadcast(ctx context.Context, broadcastID int64) error
	Close() error
}

type queueManager struct {
	client *asynq.Client
	log    *slog.Logger
}

func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	return &queueManager{client: asynq.NewClient(redisOpt), log: log}
}

func (m *queueManager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.client.EnqueueContext(ctx, task, opts...)
}

// EnqueueBroadcast queues one delivery run for a confirmed broadcast.
func (m *queueManager) EnqueueBroadcast(ctx context.Context, broadcastID int64) error {
	task, err := NewBroadcastTask(broadcastID)
	if err != nil {
		return err
	}

	info, err := m.Enqueue(ctx, task)
	if err != nil {
		return err
	}

	m.log.InfoContext(ctx, "broadcast queued",
		slog.Int64("broadcast_id", broadcastID),
		slog.String("task_id", info.ID))
	return nil
}

func (m *queueManager) Close() error {
	return m.client.Close()
}
