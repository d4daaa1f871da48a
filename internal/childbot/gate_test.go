package childbot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bekzod-dev/botforge/internal/domain"
)

func TestParseReferralPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  int64
		wantOK  bool
	}{
		{name: "valid", payload: "ref_123456", wantID: 123456, wantOK: true},
		{name: "empty", payload: "", wantOK: false},
		{name: "no prefix", payload: "123456", wantOK: false},
		{name: "not a number", payload: "ref_abc", wantOK: false},
		{name: "negative", payload: "ref_-5", wantOK: false},
		{name: "zero", payload: "ref_0", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := parseReferralPayload(tt.payload)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestRenderSubscriptionMessage(t *testing.T) {
	channels := []domain.Channel{
		{ChannelID: "@first", Title: "Birinchi kanal"},
		{ChannelID: "@second"},
	}

	got := renderSubscriptionMessage("Obuna bo'ling:\n{channels}\nKeyin davom eting.", channels)

	assert.Equal(t, "Obuna bo'ling:\n1. Birinchi kanal\n2. @second\nKeyin davom eting.", got)
}

func TestTrimCallbackData(t *testing.T) {
	assert.Equal(t, "sub_check", trimCallbackData("\fsub_check"))
	assert.Equal(t, "contest_join_5", trimCallbackData("contest_join_5"))
	assert.Equal(t, "x", trimCallbackData("prefix\fx"))
}

func TestFormatContest(t *testing.T) {
	got := formatContest(&domain.Contest{Title: "Katta konkurs", Prize: "iPhone"})

	assert.Contains(t, got, "🏆 Katta konkurs")
	assert.Contains(t, got, "🎁 iPhone")
}
