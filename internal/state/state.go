package state

import "time"

// State represents a step in an owner's conversation with the builder bot.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next command.
	StateIdle State = "idle"
	// StateAwaitingToken indicates that the owner was asked for a bot token.
	StateAwaitingToken State = "awaiting_token"
	// StateAwaitingName indicates that the owner is naming the new bot.
	StateAwaitingName State = "awaiting_name"
	// StateAwaitingBroadcast indicates that the owner is composing a broadcast.
	StateAwaitingBroadcast State = "awaiting_broadcast"
	// StateAwaitingBroadcastConfirm indicates that the composed broadcast
	// awaits a yes/no from the owner.
	StateAwaitingBroadcastConfirm State = "awaiting_broadcast_confirm"
	// StateAwaitingChannel indicates that the owner is adding a required channel.
	StateAwaitingChannel State = "awaiting_channel"
	// StateAwaitingContest indicates that the owner is describing a new contest.
	StateAwaitingContest State = "awaiting_contest"
	// StateAwaitingSetting indicates that the owner is editing one settings text.
	StateAwaitingSetting State = "awaiting_setting"
	// StateAwaitingAdmin indicates that the owner is delegating a bot admin.
	StateAwaitingAdmin State = "awaiting_admin"
	// StateAwaitingRename indicates that the owner is renaming an existing bot.
	StateAwaitingRename State = "awaiting_rename"
	// StateError indicates that the conversation broke and requires recovery.
	StateError State = "error"
)

// UserState captures the current conversation step for a bot owner, plus any
// data collected along the way (pending token, draft broadcast).
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
