package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/handlers"
	"github.com/bekzod-dev/botforge/internal/state"
)

// Dispatcher maps conversation states to input handlers. While a user
// is mid-flow (sending a token, a broadcast text, a contest line), the
// next plain message belongs to the flow rather than to a command.
type Dispatcher struct {
	fsm      state.StateMachine
	handlers map[state.State]handlers.Handler
	log      *slog.Logger
	mu       sync.RWMutex
}

func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		fsm:      fsm,
		handlers: make(map[state.State]handlers.Handler),
		log:      log,
	}
}

// RegisterStateHandler binds the input handler for one state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	d.handlers[s] = h
	d.mu.Unlock()
}

// Resolve looks up the sender's current state and returns its handler.
// A user with no stored state counts as idle; idle has no handler, so
// the router falls through to the default.
func (d *Dispatcher) Resolve(c telebot.Context) (handlers.Handler, error) {
	if c == nil || c.Sender() == nil {
		return nil, nil
	}

	cur := state.StateIdle
	st, err := d.fsm.GetState(context.Background(), c.Sender().ID)
	switch {
	case errors.Is(err, state.ErrStateNotFound):
	case err != nil:
		return nil, err
	case st != nil:
		cur = st.CurrentState
	}

	d.mu.RLock()
	h := d.handlers[cur]
	d.mu.RUnlock()
	return h, nil
}
