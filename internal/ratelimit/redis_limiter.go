package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps one sorted set per key, scored by arrival time in
// milliseconds. The set is the authoritative window shared by every
// process, so limits hold across restarts.
type RedisLimiter struct {
	rdb *redis.Client
	log *slog.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(rdb *redis.Client, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{rdb: rdb, log: log}
}

// Check records the request and counts the window in one transaction.
// The entry is added before counting, so a blocked request still
// extends the offender's window.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.rdb == nil {
		return nil, errors.New("ratelimit: no redis connection")
	}
	now := time.Now()
	if limit <= 0 {
		return &Result{ResetAt: now.Add(window)}, nil
	}

	floor := now.Add(-window).UnixMilli()
	setKey := "ratelimit:" + key

	tx := l.rdb.TxPipeline()
	tx.ZRemRangeByScore(ctx, setKey, "-inf", "("+strconv.FormatInt(floor, 10))
	tx.ZAdd(ctx, setKey, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	card := tx.ZCard(ctx, setKey)
	tx.Expire(ctx, setKey, window*2)
	if _, err := tx.Exec(ctx); err != nil {
		l.log.Error("rate limit transaction failed", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	n := int(card.Val())
	res := &Result{
		Allowed:   n <= limit,
		Remaining: limit - n,
		ResetAt:   now.Add(window),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}
