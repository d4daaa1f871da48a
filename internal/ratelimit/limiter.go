// Package ratelimit throttles per-user actions on the builder bot.
// Expensive actions (registering a bot, launching a broadcast, opening
// a contest) carry their own limits on top of the general message cap.
package ratelimit

import (
	"context"
	"time"
)

// Result reports one limit decision. ResetAt tells the caller when the
// oldest counted request falls out of the window.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a sliding-window counter keyed by caller-chosen strings.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
