package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner sweeps idempotency keys that lost their TTL, which happens
// when a write dies between SET and a Redis failover. Keys with a sane
// TTL are left for Redis to expire on its own.
type Cleaner struct {
	rdb      *redis.Client
	log      *slog.Logger
	interval time.Duration
}

func NewCleaner(rdb *redis.Client, log *slog.Logger, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{rdb: rdb, log: log, interval: interval}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}

	tick := time.NewTicker(c.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, "idempotency:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		ttl, err := c.rdb.TTL(ctx, key).Result()
		if err != nil {
			c.log.Warn("idempotency sweep ttl lookup failed", slog.String("key", key), slog.Any("error", err))
			continue
		}

		if ttl < 0 || ttl > 25*time.Hour {
			if err := c.rdb.Del(ctx, key).Err(); err != nil {
				c.log.Warn("idempotency sweep delete failed", slog.String("key", key), slog.Any("error", err))
			}
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("idempotency sweep scan failed", slog.Any("error", err))
	}
}
