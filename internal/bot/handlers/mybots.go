package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
)

// NewMyBotsHandler lists the owner's bots with a manage button per bot.
func NewMyBotsHandler(bots repository.BotRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		list, err := bots.ListByOwner(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			respond(c)
			return editOrSend(c, tr.T("builder.no_bots"))
		}

		respond(c)
		return editOrSend(c, tr.T("builder.mybots_title"), kb.BotList(list))
	}
}

// NewManageHandler opens the management menu for one bot.
func NewManageHandler(bots repository.BotRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_manage_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		respond(c)
		return editOrSend(c, fmt.Sprintf(tr.T("manage.title"), bot.Username), kb.ManageMenu(bot))
	}
}
