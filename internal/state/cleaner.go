package state

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner resets owners who walked away mid-flow. Keys already carry a
// TTL; the cleaner enforces a shorter staleness window so the owner's
// next message starts fresh instead of landing in a half-dead flow.
type Cleaner struct {
	rdb      *redis.Client
	storage  Storage
	log      *slog.Logger
	maxIdle  time.Duration
	interval time.Duration
}

func NewCleaner(rdb *redis.Client, storage Storage, log *slog.Logger, maxIdle, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{rdb: rdb, storage: storage, log: log, maxIdle: maxIdle, interval: interval}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.rdb == nil || c.storage == nil {
		return
	}

	tick := time.NewTicker(c.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped")
			return
		case <-tick.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one sweep over stored conversations.
func (c *Cleaner) Cleanup(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, ownerStateScanPattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		userID, err := ownerIDFromKey(key)
		if err != nil {
			c.log.Warn("unparseable state key", slog.String("key", key), slog.Any("error", err))
			continue
		}

		st, err := c.storage.GetState(ctx, userID)
		if err != nil {
			if !errors.Is(err, ErrStateNotFound) {
				c.log.Error("state cleaner read failed", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			continue
		}
		if st == nil || time.Since(st.UpdatedAt) <= c.maxIdle {
			continue
		}

		if err := c.storage.ClearState(ctx, userID); err != nil {
			c.log.Error("state cleaner clear failed", slog.Int64("user_id", userID), slog.Any("error", err))
			continue
		}
		c.log.Info("stale conversation reset", slog.Int64("user_id", userID))
	}
	if err := iter.Err(); err != nil {
		c.log.Error("state cleaner scan failed", slog.Any("error", err))
	}
}

func ownerIDFromKey(key string) (int64, error) {
	return strconv.ParseInt(key[strings.LastIndexByte(key, ':')+1:], 10, 64)
}
