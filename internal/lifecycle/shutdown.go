// Package lifecycle tears the process down in a fixed order: update intake
// stops before the child fleet, the fleet before the job worker, the worker
// before the queue connection closes.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type hook struct {
	name string
	stop func(ctx context.Context) error
}

// Shutdown runs registered stop functions sequentially in registration order.
type Shutdown struct {
	mu    sync.Mutex
	hooks []hook
	log   *slog.Logger
}

// NewShutdown returns an empty shutdown sequence.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{log: log}
}

// Register appends a stop function. Order of registration is the order of
// execution.
func (s *Shutdown) Register(name string, stop func(context.Context) error) {
	if stop == nil {
		return
	}

	s.mu.Lock()
	s.hooks = append(s.hooks, hook{name: name, stop: stop})
	s.mu.Unlock()
}

// Execute walks the sequence. A failing step is logged and the walk
// continues; the first error is returned so main can report a dirty exit.
// The context deadline bounds the whole sequence, not individual steps.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := make([]hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	started := time.Now()
	s.log.Info("shutting down", slog.Int("steps", len(hooks)))

	var firstErr error
	for _, h := range hooks {
		if err := ctx.Err(); err != nil {
			s.log.Error("shutdown deadline reached", slog.String("pending", h.name))
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown deadline before %s: %w", h.name, err)
			}
			break
		}

		stepStart := time.Now()
		if err := h.stop(ctx); err != nil {
			s.log.Error("shutdown step failed", slog.String("step", h.name), slog.Any("error", err))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", h.name, err)
			}
			continue
		}

		s.log.Debug("shutdown step done",
			slog.String("step", h.name),
			slog.Duration("took", time.Since(stepStart)))
	}

	s.log.Info("shutdown complete", slog.Duration("took", time.Since(started)))
	return firstErr
}
