package jobs

import (
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker consumes queued tasks. Broadcast delivery, data cleanup and
// backups all run here rather than on the bot update path.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run() error
	Shutdown()
}

type asynqWorker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
	log *slog.Logger
}

var _ Worker = (*asynqWorker)(nil)

// NewWorker builds a worker over the given queues. Weights decide how
// often each queue is polled, so broadcasts outrank backups.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, log *slog.Logger) Worker {
	return &asynqWorker{
		srv: asynq.NewServer(redisOpt, asynq.Config{
			Queues:      queues,
			Concurrency: 10,
		}),
		mux: asynq.NewServeMux(),
		log: log,
	}
}

func (w *asynqWorker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run blocks until Shutdown is called.
func (w *asynqWorker) Run() error {
	if w.log != nil {
		w.log.Info("job worker started")
	}
	return w.srv.Run(w.mux)
}

// Shutdown waits for in-flight tasks before stopping, so a broadcast
// in progress finishes its current batch.
func (w *asynqWorker) Shutdown() {
	if w.log != nil {
		w.log.Info("job worker stopping")
	}
	w.srv.Shutdown()
}
