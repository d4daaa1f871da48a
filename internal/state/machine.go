package state

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateLockTTL = 5 * time.Second

var (
	// ErrInvalidTransition rejects a state change the transition table
	// does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound means the owner has no stored state and counts
	// as idle.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked means a concurrent update holds the owner's lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var onTransition = func(from, to string) {}

// RegisterTransitionRecorder lets the metrics collector observe every
// state change without this package importing prometheus.
func RegisterTransitionRecorder(fn func(from, to string)) {
	if fn == nil {
		fn = func(string, string) {}
	}
	onTransition = fn
}

// StateMachine is the conversation controller for the builder bot.
// SetState force-sets a state with flow data; TransitionTo validates
// against the transition table and clears flow data.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error
	TransitionTo(ctx context.Context, userID int64, newState State) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	log     *slog.Logger
	rdb     *redis.Client
}

// NewStateMachine wires storage with a redis lock per owner. Two
// updates from the same owner processed concurrently must not
// interleave their state writes.
func NewStateMachine(storage Storage, log *slog.Logger, rdb *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	return &machine{storage: storage, log: log, rdb: rdb}
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

func (m *machine) SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	unlock, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		CurrentState: state,
		Context:      contextData,
	})
}

func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State) error {
	unlock, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	current := StateIdle
	stored, err := m.storage.GetState(ctx, userID)
	switch {
	case errors.Is(err, ErrStateNotFound):
	case err != nil:
		return err
	case stored != nil:
		current = stored.CurrentState
	}

	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("transition rejected",
			slog.Int64("user_id", userID),
			slog.String("from", string(current)),
			slog.String("to", string(newState)))
		return ErrInvalidTransition
	}

	onTransition(string(current), string(newState))

	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		CurrentState: newState,
	})
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	unlock, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.storage.ClearState(ctx, userID)
}

func (m *machine) lock(ctx context.Context, userID int64) (func(), error) {
	if m.rdb == nil {
		return func() {}, nil
	}

	key := "owner:lock:" + strconv.FormatInt(userID, 10)
	ok, err := m.rdb.SetNX(ctx, key, 1, stateLockTTL).Result()
	if err != nil {
		m.log.Error("state lock failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	if !ok {
		return nil, ErrStateLocked
	}

	return func() {
		if err := m.rdb.Del(ctx, key).Err(); err != nil {
			m.log.Error("state unlock failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}, nil
}
