package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_RoundTrip(t *testing.T) {
	storage := NewRedisStorage(stateTestRedis(t), discardLogger())
	ctx := context.Background()

	in := &UserState{
		UserID:       123,
		CurrentState: StateAwaitingToken,
		Context: map[string]interface{}{
			"pending_token": "1234567890:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_",
		},
	}
	require.NoError(t, storage.SetState(ctx, in.UserID, in))

	out, err := storage.GetState(ctx, in.UserID)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.CurrentState, out.CurrentState)
	assert.Equal(t, in.Context, out.Context)
	assert.WithinDuration(t, time.Now(), out.UpdatedAt, time.Minute)
}

func TestRedisStorage_MissingState(t *testing.T) {
	storage := NewRedisStorage(stateTestRedis(t), discardLogger())

	st, err := storage.GetState(context.Background(), 999)
	assert.Nil(t, st)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearState(t *testing.T) {
	storage := NewRedisStorage(stateTestRedis(t), discardLogger())
	ctx := context.Background()

	require.NoError(t, storage.SetState(ctx, 456, &UserState{
		UserID:       456,
		CurrentState: StateAwaitingBroadcast,
		Context:      map[string]interface{}{"bot_id": "7"},
	}))
	require.NoError(t, storage.ClearState(ctx, 456))

	_, err := storage.GetState(ctx, 456)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_GetAllStates(t *testing.T) {
	storage := NewRedisStorage(stateTestRedis(t), discardLogger())
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.SetState(ctx, id, &UserState{UserID: id, CurrentState: StateAwaitingName}))
	}

	states, err := storage.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 3)
}
