package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter counts request timestamps per key in process memory.
// It backs up the Redis limiter during outages, so it favors being
// simple over being cheap: one mutex, plain slices.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	log  *slog.Logger
}

func NewMemoryLimiter(log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryLimiter{hits: make(map[string][]time.Time), log: log}
}

// Check drops timestamps older than the window, then admits the
// request if the remainder is under limit.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := time.Now()
	floor := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := pruneBefore(m.hits[key], floor)

	res := &Result{ResetAt: now.Add(window)}
	if len(recent) >= limit {
		m.hits[key] = recent
		if len(recent) > 0 {
			res.ResetAt = recent[0].Add(window)
		}
		return res, nil
	}

	m.hits[key] = append(recent, now)
	res.Allowed = true
	res.Remaining = limit - len(recent) - 1
	return res, nil
}

// Cleanup drops keys whose newest hit is older than maxAge. Called by
// the background cleaner so an outage's worth of fallback keys does
// not live forever.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, stamps := range m.hits {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
			delete(m.hits, key)
		}
	}
}

func pruneBefore(stamps []time.Time, floor time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(floor) {
		i++
	}
	return stamps[i:]
}
