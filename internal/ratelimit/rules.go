package ratelimit

import (
	"errors"
	"sync"
	"time"

	"github.com/bekzod-dev/botforge/pkg/config"
)

// Action names a rate-limited user activity.
type Action string

const (
	ActionMessage         Action = "message"
	ActionButtonClick     Action = "button_click"
	ActionBotCreation     Action = "bot_creation"
	ActionContestCreation Action = "contest_creation"
	ActionBroadcast       Action = "broadcast"
)

// Rules encapsulates configured rate limits and helper methods. The config
// may be swapped at runtime via Update, so all reads take the lock.
type Rules struct {
	mu     sync.RWMutex
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Update replaces the active rule set, used on config hot reload.
func (r *Rules) Update(cfg config.RateLimitConfig) {
	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
}

// Enabled reports whether rate limiting is turned on at all.
func (r *Rules) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// GetActionLimit returns the limit and window for a specific action.
func (r *Rules) GetActionLimit(action Action) (int, time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch action {
	case ActionMessage:
		return parseRule(r.config.Actions.Message)
	case ActionButtonClick:
		return parseRule(r.config.Actions.ButtonClick)
	case ActionBotCreation:
		return parseRule(r.config.Actions.BotCreation)
	case ActionContestCreation:
		return parseRule(r.config.Actions.ContestCreation)
	case ActionBroadcast:
		return parseRule(r.config.Actions.Broadcast)
	default:
		return 0, 0, errors.New("unsupported action")
	}
}

// GetPerUserLimit returns the per-user rate limiting rule.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return parseRule(r.config.PerUser)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" {
		return rule.Limit, 0, errors.New("window duration is not set")
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
