// Package session stores per-user onboarding progress for each child bot in
// redis. Progress is keyed by (bot, user) so one person can be mid-onboarding
// in several bots at once, and it survives process restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPattern = "session:%d:%d"
	sessionTTL        = 24 * time.Hour
)

// Step names the gate a user currently stands at.
type Step string

const (
	StepSubscription Step = "subscription"
	StepPhone        Step = "phone"
	StepDone         Step = "done"
)

// Session is one user's onboarding progress inside one child bot.
type Session struct {
	BotID         int64     `json:"bot_id"`
	UserID        int64     `json:"user_id"`
	Step          Step      `json:"step"`
	PhoneVerified bool      `json:"phone_verified"`
	ContestID     int64     `json:"contest_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store persists sessions in redis.
type Store struct {
	client *redis.Client
	log    *slog.Logger
}

// NewStore builds a redis-backed session store.
func NewStore(client *redis.Client, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		client: client,
		log:    log,
	}
}

// Get returns the stored session, or a fresh one at the subscription step
// when none exists.
func (s *Store) Get(ctx context.Context, botID, userID int64) (*Session, error) {
	key := sessionKey(botID, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Session{BotID: botID, UserID: userID, Step: StepSubscription}, nil
		}

		s.log.Error("failed to get session", "bot_id", botID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		s.log.Error("failed to decode session", "bot_id", botID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &sess, nil
}

// Save writes the session back with a refreshed TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	key := sessionKey(sess.BotID, sess.UserID)
	if err := s.client.Set(ctx, key, data, sessionTTL).Err(); err != nil {
		s.log.Error("failed to save session", "bot_id", sess.BotID, "user_id", sess.UserID, "error", err)
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// Reset puts the user back at the start of the gate. Every /start goes
// through here, so phone verification is re-proven on each entry.
func (s *Store) Reset(ctx context.Context, botID, userID int64) (*Session, error) {
	sess := &Session{BotID: botID, UserID: userID, Step: StepSubscription}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Clear removes the session entirely.
func (s *Store) Clear(ctx context.Context, botID, userID int64) error {
	key := sessionKey(botID, userID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ClearExpired removes sessions older than maxAge. Redis already expires keys
// after a day; this sweep lets the cleanup job use a tighter window.
func (s *Store) ClearExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, "session:*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan sessions: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}

			var sess Session
			if err := json.Unmarshal([]byte(data), &sess); err != nil {
				continue
			}

			if time.Since(sess.UpdatedAt) > maxAge {
				if err := s.client.Del(ctx, key).Err(); err == nil {
					removed++
				}
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

func sessionKey(botID, userID int64) string {
	return fmt.Sprintf(sessionKeyPattern, botID, userID)
}
