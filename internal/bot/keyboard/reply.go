package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/i18n"
)

// MainMenu is the persistent reply keyboard of the builder bot: my
// bots on the left, new bot on the right.
func MainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	label := func(key string) string {
		if t == nil {
			return key
		}
		return t.T(key)
	}

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(markup.Row(
		markup.Text(label("builder.menu_mybots")),
		markup.Text(label("builder.menu_newbot")),
	))
	return markup
}
