package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
)

func TestToggleUpdate(t *testing.T) {
	settings := &domain.BotSettings{
		PhoneRequired:       true,
		SubscriptionEnabled: false,
		ReferralEnabled:     true,
		BroadcastEnabled:    false,
	}

	cases := []struct {
		field string
		check func(t *testing.T, upd domain.SettingsUpdate)
	}{
		{field: "phone", check: func(t *testing.T, upd domain.SettingsUpdate) {
			require.NotNil(t, upd.PhoneRequired)
			assert.False(t, *upd.PhoneRequired)
		}},
		{field: "subscription", check: func(t *testing.T, upd domain.SettingsUpdate) {
			require.NotNil(t, upd.SubscriptionEnabled)
			assert.True(t, *upd.SubscriptionEnabled)
		}},
		{field: "referral", check: func(t *testing.T, upd domain.SettingsUpdate) {
			require.NotNil(t, upd.ReferralEnabled)
			assert.False(t, *upd.ReferralEnabled)
		}},
		{field: "broadcast", check: func(t *testing.T, upd domain.SettingsUpdate) {
			require.NotNil(t, upd.BroadcastEnabled)
			assert.True(t, *upd.BroadcastEnabled)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			upd, ok := toggleUpdate(settings, tc.field)
			require.True(t, ok)
			tc.check(t, upd)
		})
	}

	_, ok := toggleUpdate(settings, "autopilot")
	assert.False(t, ok)
}

func TestSettingUpdate(t *testing.T) {
	t.Run("welcome text", func(t *testing.T) {
		upd, ok := settingUpdate("welcome", &telebot.Message{Text: "Salom!"})
		require.True(t, ok)
		require.NotNil(t, upd.WelcomeMessage)
		assert.Equal(t, "Salom!", *upd.WelcomeMessage)
		require.NotNil(t, upd.WelcomeMedia)
		assert.Empty(t, *upd.WelcomeMedia)
	})

	t.Run("welcome photo with caption", func(t *testing.T) {
		msg := &telebot.Message{
			Caption: "Salom!",
			Photo:   &telebot.Photo{File: telebot.File{FileID: "photo-1"}},
		}
		upd, ok := settingUpdate("welcome", msg)
		require.True(t, ok)
		require.NotNil(t, upd.WelcomeMedia)
		assert.Equal(t, "photo-1", *upd.WelcomeMedia)
		require.NotNil(t, upd.WelcomeMediaType)
		assert.Equal(t, "photo", *upd.WelcomeMediaType)
		require.NotNil(t, upd.WelcomeMessage)
		assert.Equal(t, "Salom!", *upd.WelcomeMessage)
	})

	t.Run("subscription message text only", func(t *testing.T) {
		upd, ok := settingUpdate("submsg", &telebot.Message{Text: "Obuna bo'ling: {channels}"})
		require.True(t, ok)
		require.NotNil(t, upd.SubscriptionMessage)
		assert.Equal(t, "Obuna bo'ling: {channels}", *upd.SubscriptionMessage)
		assert.Nil(t, upd.WelcomeMessage)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		_, ok := settingUpdate("submsg", &telebot.Message{})
		assert.False(t, ok)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, ok := settingUpdate("secret", &telebot.Message{Text: "x"})
		assert.False(t, ok)
	})
}

func TestCallbackIDField(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		wantID  int64
		wantKey string
		wantErr bool
	}{
		{name: "toggle", data: "setting_toggle_12_subscription", wantID: 12, wantKey: "subscription"},
		{name: "missing field", data: "setting_toggle_12", wantErr: true},
		{name: "bad id", data: "setting_toggle_x_phone", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &callbackOnlyContext{data: tc.data}
			id, field, err := callbackIDField(c, "setting_toggle_")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, id)
			assert.Equal(t, tc.wantKey, field)
		})
	}
}

// callbackOnlyContext exposes callback data and nothing else.
type callbackOnlyContext struct {
	telebot.Context
	data string
}

func (c *callbackOnlyContext) Callback() *telebot.Callback {
	return &telebot.Callback{Data: c.data}
}
