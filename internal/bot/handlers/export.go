package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
)

// NewExportHandler renders the bot's audience as a spreadsheet document.
func NewExportHandler(bots repository.BotRepository, exporter Exporter, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_export_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		buf, name, err := exporter.Audience(ctx, bot)
		if err != nil {
			return err
		}

		respond(c)
		return c.Send(&telebot.Document{
			File:     telebot.FromReader(buf),
			FileName: name,
		})
	}
}
