package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
)

type mapTranslator map[string]string

func (m mapTranslator) T(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

func (m mapTranslator) Lang() string { return "uz" }

func TestMainMenu(t *testing.T) {
	tr := mapTranslator{
		"builder.menu_mybots": "Mening botlarim",
		"builder.menu_newbot": "Yangi bot",
	}

	markup := keyboard.MainMenu(tr)

	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 1)
	require.Len(t, markup.ReplyKeyboard[0], 2)
	assert.Equal(t, "Mening botlarim", markup.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "Yangi bot", markup.ReplyKeyboard[0][1].Text)
}

func TestMainMenu_NilTranslatorFallsBackToKeys(t *testing.T) {
	markup := keyboard.MainMenu(nil)

	require.Len(t, markup.ReplyKeyboard, 1)
	assert.Equal(t, "builder.menu_mybots", markup.ReplyKeyboard[0][0].Text)
}
