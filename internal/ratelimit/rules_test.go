package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bekzod-dev/botforge/pkg/config"
)

func testRules() *Rules {
	return NewRules(config.RateLimitConfig{
		Enabled:   true,
		Whitelist: []int64{42},
		PerUser:   config.RateLimitRule{Limit: 30, Window: "1m"},
		Actions: config.RateLimitActions{
			Message:         config.RateLimitRule{Limit: 20, Window: "1m"},
			ButtonClick:     config.RateLimitRule{Limit: 30, Window: "1m"},
			BotCreation:     config.RateLimitRule{Limit: 3, Window: "1h"},
			ContestCreation: config.RateLimitRule{Limit: 5, Window: "1h"},
			Broadcast:       config.RateLimitRule{Limit: 2, Window: "10m"},
		},
	})
}

func TestRules_IsWhitelisted(t *testing.T) {
	rules := testRules()

	assert.True(t, rules.IsWhitelisted(42))
	assert.False(t, rules.IsWhitelisted(43))
}

func TestRules_GetActionLimit(t *testing.T) {
	rules := testRules()

	testCases := []struct {
		action Action
		limit  int
		window time.Duration
	}{
		{action: ActionMessage, limit: 20, window: time.Minute},
		{action: ActionButtonClick, limit: 30, window: time.Minute},
		{action: ActionBotCreation, limit: 3, window: time.Hour},
		{action: ActionContestCreation, limit: 5, window: time.Hour},
		{action: ActionBroadcast, limit: 2, window: 10 * time.Minute},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.action), func(t *testing.T) {
			limit, window, err := rules.GetActionLimit(tc.action)
			assert.NoError(t, err)
			assert.Equal(t, tc.limit, limit)
			assert.Equal(t, tc.window, window)
		})
	}
}

func TestRules_UnsupportedAction(t *testing.T) {
	rules := testRules()

	_, _, err := rules.GetActionLimit(Action("unknown"))
	assert.Error(t, err)
}
