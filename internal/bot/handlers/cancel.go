package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/state"
)

// NewCancelHandler resets the owner's conversation and returns the main menu.
func NewCancelHandler(fsm state.StateMachine, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if fsm != nil {
			if err := fsm.ClearState(ctx, userID); err != nil {
				log.Error("failed to clear owner state", slog.Int64("user_id", userID), slog.Any("error", err))
				return err
			}
		}

		return c.Send(tr.T("common.cancelled"), keyboard.MainMenu(tr))
	}
}
