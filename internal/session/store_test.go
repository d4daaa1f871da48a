package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_GetReturnsFreshSession(t *testing.T) {
	store := setupStore(t)

	sess, err := store.Get(context.Background(), 1, 100)
	assert.NoError(t, err)
	assert.Equal(t, StepSubscription, sess.Step)
	assert.False(t, sess.PhoneVerified)
}

func TestStore_SaveAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sess := &Session{BotID: 1, UserID: 100, Step: StepPhone}
	assert.NoError(t, store.Save(ctx, sess))

	stored, err := store.Get(ctx, 1, 100)
	assert.NoError(t, err)
	assert.Equal(t, StepPhone, stored.Step)

	// Same user in another bot has an independent session.
	other, err := store.Get(ctx, 2, 100)
	assert.NoError(t, err)
	assert.Equal(t, StepSubscription, other.Step)
}

func TestStore_ResetDropsPhoneVerification(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sess := &Session{BotID: 1, UserID: 100, Step: StepDone, PhoneVerified: true}
	assert.NoError(t, store.Save(ctx, sess))

	reset, err := store.Reset(ctx, 1, 100)
	assert.NoError(t, err)
	assert.Equal(t, StepSubscription, reset.Step)
	assert.False(t, reset.PhoneVerified)

	stored, err := store.Get(ctx, 1, 100)
	assert.NoError(t, err)
	assert.False(t, stored.PhoneVerified)
}

func TestStore_ClearExpired(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := &Session{BotID: 1, UserID: 1, Step: StepDone}
	assert.NoError(t, store.Save(ctx, old))

	// Backdate the stored session past the sweep window.
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	data, _ := json.Marshal(old)
	assert.NoError(t, store.client.Set(ctx, sessionKey(1, 1), data, 0).Err())

	fresh := &Session{BotID: 1, UserID: 2, Step: StepDone}
	assert.NoError(t, store.Save(ctx, fresh))

	removed, err := store.ClearExpired(ctx, time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, 1, removed)

	kept, err := store.Get(ctx, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, StepDone, kept.Step)
}
