package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) Limiter {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisLimiter(rdb, testLogger())
}

func TestRedisLimiter_AdmitsUnderLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "user:1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i)
	}

	res, err := limiter.Check(ctx, "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Remaining)
}

func TestRedisLimiter_RejectsOverLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	var last *Result
	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "user:2", 2, time.Minute)
		require.NoError(t, err)
		last = res
	}

	assert.False(t, last.Allowed)
	assert.Zero(t, last.Remaining)
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Check(ctx, "user:3", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	time.Sleep(1100 * time.Millisecond)

	res, err := limiter.Check(ctx, "user:3", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "old entries should have left the window")
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(ctx, "user:4", 1, time.Minute)
		require.NoError(t, err)
	}

	res, err := limiter.Check(ctx, "user:5", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
