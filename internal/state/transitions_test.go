package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to awaiting token", from: StateIdle, to: StateAwaitingToken, expected: true},
		{name: "awaiting token to awaiting name", from: StateAwaitingToken, to: StateAwaitingName, expected: true},
		{name: "awaiting token back to idle", from: StateAwaitingToken, to: StateIdle, expected: true},
		{name: "idle to awaiting broadcast", from: StateIdle, to: StateAwaitingBroadcast, expected: true},
		{name: "awaiting broadcast to confirm", from: StateAwaitingBroadcast, to: StateAwaitingBroadcastConfirm, expected: true},
		{name: "confirm to idle", from: StateAwaitingBroadcastConfirm, to: StateIdle, expected: true},
		{name: "idle to awaiting channel", from: StateIdle, to: StateAwaitingChannel, expected: true},
		{name: "idle to awaiting contest", from: StateIdle, to: StateAwaitingContest, expected: true},
		{name: "idle to awaiting setting", from: StateIdle, to: StateAwaitingSetting, expected: true},
		{name: "idle to awaiting admin", from: StateIdle, to: StateAwaitingAdmin, expected: true},
		{name: "idle to awaiting rename", from: StateIdle, to: StateAwaitingRename, expected: true},
		{name: "awaiting setting to awaiting admin invalid", from: StateAwaitingSetting, to: StateAwaitingAdmin, expected: false},
		{name: "awaiting contest to token invalid", from: StateAwaitingContest, to: StateAwaitingToken, expected: false},
		{name: "idle straight to awaiting name invalid", from: StateIdle, to: StateAwaitingName, expected: false},
		{name: "idle straight to confirm invalid", from: StateIdle, to: StateAwaitingBroadcastConfirm, expected: false},
		{name: "confirm back to broadcast invalid", from: StateAwaitingBroadcastConfirm, to: StateAwaitingBroadcast, expected: false},
		{name: "unknown state to awaiting token invalid", from: State("unknown"), to: StateAwaitingToken, expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error emergency", from: StateAwaitingBroadcastConfirm, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
