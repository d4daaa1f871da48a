package state

// validTransitions contains the permitted non-emergency transitions between
// conversation steps.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAwaitingToken,
		StateAwaitingBroadcast,
		StateAwaitingChannel,
		StateAwaitingContest,
		StateAwaitingSetting,
		StateAwaitingAdmin,
		StateAwaitingRename,
	},
	StateAwaitingToken: {
		StateAwaitingName,
		StateIdle,
	},
	StateAwaitingName: {
		StateIdle,
	},
	StateAwaitingBroadcast: {
		StateAwaitingBroadcastConfirm,
		StateIdle,
	},
	StateAwaitingBroadcastConfirm: {
		StateIdle,
	},
	StateAwaitingChannel: {
		StateIdle,
	},
	StateAwaitingContest: {
		StateIdle,
	},
	StateAwaitingSetting: {
		StateIdle,
	},
	StateAwaitingAdmin: {
		StateIdle,
	},
	StateAwaitingRename: {
		StateIdle,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
