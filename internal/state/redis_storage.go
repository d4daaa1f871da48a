package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ownerStatePrefix      = "owner:state:"
	ownerStateScanPattern = ownerStatePrefix + "*"

	stateTTL = time.Hour
)

// RedisStorage keeps one JSON UserState per owner under owner:state:<id>.
type RedisStorage struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisStorage(rdb *redis.Client, log *slog.Logger) Storage {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStorage{rdb: rdb, log: log}
}

func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.rdb.Get(ctx, ownerStateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("state read failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	var st UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		s.log.Error("state record corrupt", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return &st, nil
}

// SetState writes the state with a one-hour TTL. Abandoned
// conversations expire on their own even if the cleaner never runs.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	st.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, ownerStateKey(userID), raw, stateTTL).Err(); err != nil {
		s.log.Error("state write failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, ownerStateKey(userID)).Err(); err != nil {
		s.log.Error("state clear failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	return nil
}

// GetAllStates scans the owner:state keyspace. Keys that vanish
// between scan and read are skipped, not errors.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var out []*UserState

	iter := s.rdb.Scan(ctx, 0, ownerStateScanPattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			s.log.Error("state read failed during scan", slog.String("key", iter.Val()), slog.Any("error", err))
			return nil, err
		}

		var st UserState
		if err := json.Unmarshal(raw, &st); err != nil {
			s.log.Warn("skipping corrupt state record", slog.String("key", iter.Val()), slog.Any("error", err))
			continue
		}
		out = append(out, &st)
	}
	if err := iter.Err(); err != nil {
		s.log.Error("state scan failed", slog.Any("error", err))
		return nil, err
	}

	return out, nil
}

func ownerStateKey(userID int64) string {
	return ownerStatePrefix + strconv.FormatInt(userID, 10)
}
