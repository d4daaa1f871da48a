package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner trims rate limit sorted sets in the background. Expire on
// the key handles the common case; the sweep catches sets kept alive
// by a steady trickle of requests that never fills the window.
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
	if c.rdb == nil || c.interval <= 0 {
		return
	}

	tick := time.NewTicker(c.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped")
			return
		case <-tick.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	floor := time.Now().Add(-5 * time.Minute).UnixMilli()
	removed := 0

	iter := c.rdb.Scan(ctx, 0, "ratelimit:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		tx := c.rdb.TxPipeline()
		tx.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(floor, 10))
		card := tx.ZCard(ctx, key)
		if _, err := tx.Exec(ctx); err != nil {
			c.log.Warn("rate limit sweep trim failed", slog.String("key", key), slog.Any("error", err))
			continue
		}

		if card.Val() == 0 {
			if err := c.rdb.Del(ctx, key).Err(); err != nil {
				c.log.Warn("rate limit sweep delete failed", slog.String("key", key), slog.Any("error", err))
				continue
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("rate limit sweep scan failed", slog.Any("error", err))
		return
	}

	if removed > 0 {
		c.log.Info("rate limit keys swept", slog.Int("removed", removed))
	}
}
