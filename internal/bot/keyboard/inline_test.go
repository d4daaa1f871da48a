package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
)

func TestInlineKeyboardBuilder_RowsAndData(t *testing.T) {
	markup := keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.InlineButton{Text: "Bot A", Data: "bot_manage_1"},
			keyboard.InlineButton{Text: "Bot B", Data: "bot_manage_2"},
		).
		AddRow(
			keyboard.InlineButton{Text: "Orqaga", Data: "bots_list"},
		).
		Build()

	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "bot_manage_2", markup.InlineKeyboard[0][1].Data)
	assert.Equal(t, "Orqaga", markup.InlineKeyboard[1][0].Text)
}

func TestInlineKeyboardBuilder_EmptyRowDropped(t *testing.T) {
	markup := keyboard.NewInlineKeyboard().
		AddRow().
		AddRow(keyboard.InlineButton{Text: "Only", Data: "only"}).
		Build()

	require.Len(t, markup.InlineKeyboard, 1)
}

func TestInlineKeyboardBuilder_NoRows(t *testing.T) {
	markup := keyboard.NewInlineKeyboard().Build()

	require.NotNil(t, markup)
	assert.Empty(t, markup.InlineKeyboard)
}
