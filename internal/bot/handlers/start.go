package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/state"
)

// NewStartHandler greets the owner and resets any stale conversation state.
func NewStartHandler(fsm state.StateMachine, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if fsm != nil {
			if err := fsm.ClearState(ctx, userID); err != nil {
				log.Error("failed to reset owner state", slog.Int64("user_id", userID), slog.Any("error", err))
			}
		}

		return c.Send(tr.T("builder.welcome"), keyboard.MainMenu(tr))
	}
}

// NewHelpHandler lists the builder bot commands.
func NewHelpHandler(tr i18n.Translator) Handler {
	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}
		return c.Send(tr.T("builder.help"))
	}
}

// NewMenuHandler routes main menu reply-keyboard presses to their commands.
// Unmatched text is ignored so stray messages stay silent.
func NewMenuHandler(tr i18n.Translator, myBots, newBot Handler) Handler {
	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		switch c.Text() {
		case tr.T("builder.menu_mybots"):
			return myBots(c)
		case tr.T("builder.menu_newbot"):
			return newBot(c)
		}

		return nil
	}
}
