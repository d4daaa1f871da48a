package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bekzod-dev/botforge/internal/domain"
)

func TestParseContestInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
		title string
		prize string
		days  int
		ok    bool
	}{
		{name: "full form", input: "Yozgi konkurs | iPhone 15 | 14", title: "Yozgi konkurs", prize: "iPhone 15", days: 14, ok: true},
		{name: "title only", input: "Qishki konkurs", title: "Qishki konkurs", ok: true},
		{name: "title and prize", input: "Konkurs | Sovg'a", title: "Konkurs", prize: "Sovg'a", ok: true},
		{name: "short title rejected", input: "ab | x | 3", ok: false},
		{name: "bad days rejected", input: "Konkurs | x | abc", ok: false},
		{name: "zero days rejected", input: "Konkurs | x | 0", ok: false},
		{name: "too many parts rejected", input: "a | b | c | d", ok: false},
		{name: "empty rejected", input: "   ", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, prize, days, ok := parseContestInput(tc.input)
			assert.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.title, title)
			assert.Equal(t, tc.prize, prize)
			assert.Equal(t, tc.days, days)
		})
	}
}

func TestFormatWinners(t *testing.T) {
	tr := tStub{}
	contest := &domain.Contest{ID: 1, Title: "Yozgi konkurs"}

	got := formatWinners(tr, contest, []domain.Winner{
		{Place: 1, FirstName: "Ali", Username: "alivaliyev"},
		{Place: 2, FirstName: "Gulnora"},
		{Place: 4, FirstName: "Bobur"},
	})

	assert.Contains(t, got, "Yozgi konkurs")
	assert.Contains(t, got, "🥇 Ali (@alivaliyev)")
	assert.Contains(t, got, "🥈 Gulnora")
	assert.Contains(t, got, "🏅 Bobur")
}

// tStub resolves every key to a format verb so Sprintf keeps working.
type tStub struct{}

func (tStub) T(key string) string { return "%s" }
func (tStub) Lang() string        { return "uz" }
