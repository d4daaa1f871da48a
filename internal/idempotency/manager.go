// Package idempotency deduplicates Telegram updates. Telegram redelivers
// an update whenever the long poll times out mid-handler, and a double
// tap on an inline button lands twice; both must not create two bots or
// queue two broadcasts.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress means another goroutine holds the lock for this
// key and has not finished yet.
var ErrRequestInProgress = errors.New("duplicate update still being processed")

const (
	lockTTL      = 5 * time.Minute
	pollInterval = 100 * time.Millisecond
)

type Operation func(ctx context.Context) (interface{}, error)

// Result carries the operation's response and whether it was replayed
// from a previous run.
type Result struct {
	Response  interface{}
	FromCache bool
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	return &manager{store: store, log: log}
}

// Execute runs fn exactly once per key within ttl. The first caller
// takes a lock and runs; later callers either replay the stored
// response or, while the first is still running, get
// ErrRequestInProgress.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("idempotency: nil operation")
	}

	for {
		locked, err := m.store.Lock(ctx, key, lockTTL)
		if err != nil {
			return nil, err
		}
		if locked {
			return m.runLocked(ctx, key, ttl, fn)
		}

		res, done, err := m.lookup(ctx, key)
		if err != nil || done {
			return res, err
		}

		// Record not written yet. The lock holder either just started
		// or died between locking and writing; wait and retry.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (m *manager) runLocked(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer func() {
		if err := m.store.ReleaseLock(ctx, key); err != nil {
			m.log.Warn("idempotency unlock failed", slog.String("key", key), slog.Any("error", err))
		}
	}()

	out, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, key, &Record{Status: StatusCompleted, Response: encoded}, ttl); err != nil {
		return nil, err
	}

	return &Result{Response: out}, nil
}

func (m *manager) lookup(ctx context.Context, key string) (*Result, bool, error) {
	rec, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, true, err
	}
	if rec == nil {
		return nil, false, nil
	}

	switch rec.Status {
	case StatusCompleted:
		var resp interface{}
		if len(rec.Response) > 0 {
			if err := json.Unmarshal(rec.Response, &resp); err != nil {
				return nil, true, err
			}
		}
		return &Result{Response: resp, FromCache: true}, true, nil
	case StatusProcessing:
		return nil, true, ErrRequestInProgress
	default:
		return nil, false, nil
	}
}
