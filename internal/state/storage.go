// Package state tracks where each bot owner is in a builder
// conversation: waiting for a token, a broadcast text, a channel
// handle or a contest line.
package state

import "context"

// Storage persists one UserState per owner.
type Storage interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state *UserState) error
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates lists every stored state, for the metrics gauge.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
