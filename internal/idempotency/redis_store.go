package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Record is the stored outcome of an operation. Response holds the
// JSON-encoded handler result for replay.
type Record struct {
	Status   string `json:"status"`
	Response []byte `json:"response,omitempty"`
}

type Store interface {
	Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
}

// RedisStore keeps records as one JSON value per key under the
// idempotency: prefix, with a sibling :lock key for the mutex.
type RedisStore struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisStore(rdb *redis.Client, log *slog.Logger) Store {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{rdb: rdb, log: log}
}

func (s *RedisStore) Lock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(key), 1, lockTTL).Result()
	if err != nil {
		s.log.Error("idempotency lock failed", slog.String("key", key), slog.Any("error", err))
		return false, err
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("idempotency read failed", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.log.Error("idempotency record corrupt", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, record *Record, ttl time.Duration) error {
	if record == nil {
		return nil
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, recordKey(key), raw, ttl).Err(); err != nil {
		s.log.Error("idempotency write failed", slog.String("key", key), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, lockKey(key)).Err(); err != nil {
		s.log.Error("idempotency unlock failed", slog.String("key", key), slog.Any("error", err))
		return err
	}
	return nil
}

func recordKey(key string) string { return "idempotency:" + key }

func lockKey(key string) string { return "idempotency:" + key + ":lock" }
