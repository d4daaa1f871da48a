package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageDown = errors.New("storage down")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	st, _ := args.Get(0).(*UserState)
	return st, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	return m.Called(ctx, userID, st).Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func savedState(target State) interface{} {
	return mock.MatchedBy(func(st *UserState) bool {
		return st.CurrentState == target
	})
}

func TestMachine_TransitionTo(t *testing.T) {
	const userID = int64(42)

	cases := []struct {
		name    string
		setup   func(ms *mockStorage)
		to      State
		wantErr error
	}{
		{
			name: "idle to awaiting token",
			setup: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
				ms.On("SetState", mock.Anything, userID, savedState(StateAwaitingToken)).
					Return(nil).Once()
			},
			to: StateAwaitingToken,
		},
		{
			name: "disallowed jump rejected",
			setup: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
			},
			to:      StateAwaitingBroadcastConfirm,
			wantErr: ErrInvalidTransition,
		},
		{
			name: "missing state counts as idle",
			setup: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, userID, savedState(StateAwaitingToken)).
					Return(nil).Once()
			},
			to: StateAwaitingToken,
		},
		{
			name: "storage read error propagates",
			setup: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), errStorageDown).Once()
			},
			to:      StateAwaitingToken,
			wantErr: errStorageDown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setup(ms)

			fsm := NewStateMachine(ms, discardLogger(), nil)
			err := fsm.TransitionTo(context.Background(), userID, tc.to)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestMachine_SetState_CarriesContext(t *testing.T) {
	const userID = int64(11)

	ms := &mockStorage{}
	ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(st *UserState) bool {
		return st.CurrentState == StateAwaitingContest && st.Context["bot_id"] == "7"
	})).Return(nil).Once()

	fsm := NewStateMachine(ms, discardLogger(), nil)
	err := fsm.SetState(context.Background(), userID, StateAwaitingContest, map[string]interface{}{"bot_id": "7"})

	require.NoError(t, err)
	ms.AssertExpectations(t)
}

func TestMachine_SetState_StorageError(t *testing.T) {
	ms := &mockStorage{}
	ms.On("SetState", mock.Anything, int64(11), mock.Anything).Return(errStorageDown).Once()

	fsm := NewStateMachine(ms, discardLogger(), nil)
	err := fsm.SetState(context.Background(), 11, StateAwaitingToken, nil)

	assert.ErrorIs(t, err, errStorageDown)
}

func TestMachine_GetState(t *testing.T) {
	const userID = int64(7)

	ms := &mockStorage{}
	ms.On("GetState", mock.Anything, userID).
		Return(&UserState{UserID: userID, CurrentState: StateAwaitingName}, nil).Once()

	fsm := NewStateMachine(ms, discardLogger(), nil)
	st, err := fsm.GetState(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, StateAwaitingName, st.CurrentState)
	ms.AssertExpectations(t)
}

func TestMachine_ClearState(t *testing.T) {
	ms := &mockStorage{}
	ms.On("ClearState", mock.Anything, int64(13)).Return(nil).Once()

	fsm := NewStateMachine(ms, discardLogger(), nil)
	require.NoError(t, fsm.ClearState(context.Background(), 13))
	ms.AssertExpectations(t)
}

// Two concurrent writes for the same owner must serialize on the
// redis lock: one wins, the other gets ErrStateLocked.
func TestMachine_OwnerLockContention(t *testing.T) {
	rdb := stateTestRedis(t)
	storage := newSlowStorage(100 * time.Millisecond)
	fsm := NewStateMachine(storage, discardLogger(), rdb)

	const userID = int64(77)
	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.SetState(context.Background(), userID, StateAwaitingToken, nil)
		}()
	}
	wg.Wait()
	close(errCh)

	var won, blocked int
	for err := range errCh {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrStateLocked):
			blocked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, 1, blocked)
}

func stateTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// slowStorage holds writes long enough for the lock test to overlap.
type slowStorage struct {
	mu     sync.Mutex
	states map[int64]*UserState
	delay  time.Duration
}

func newSlowStorage(delay time.Duration) *slowStorage {
	return &slowStorage{states: make(map[int64]*UserState), delay: delay}
}

func (s *slowStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *slowStorage) SetState(_ context.Context, userID int64, st *UserState) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.states[userID] = &cp
	return nil
}

func (s *slowStorage) ClearState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

func (s *slowStorage) GetAllStates(context.Context) ([]*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*UserState, 0, len(s.states))
	for _, st := range s.states {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}
