package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/pkg/config"
)

// StatsDeps bundles the repositories behind the per-bot statistics view.
type StatsDeps struct {
	Bots       repository.BotRepository
	BotUsers   repository.BotUserRepository
	Referrals  repository.ReferralRepository
	Contests   repository.ContestRepository
	Broadcasts repository.BroadcastRepository
}

// NewStatsHandler renders audience and activity counters for one bot.
func NewStatsHandler(deps StatsDeps, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_stats_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, deps.Bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		total, err := deps.BotUsers.Count(ctx, botID)
		if err != nil {
			return err
		}
		today, err := deps.BotUsers.CountSince(ctx, botID, "1 day")
		if err != nil {
			return err
		}
		week, err := deps.BotUsers.CountSince(ctx, botID, "7 days")
		if err != nil {
			return err
		}
		referrals, err := deps.Referrals.CountByBot(ctx, botID)
		if err != nil {
			return err
		}
		contests, err := deps.Contests.CountActive(ctx, botID)
		if err != nil {
			return err
		}
		broadcasts, err := deps.Broadcasts.CountByBot(ctx, botID)
		if err != nil {
			return err
		}

		text := fmt.Sprintf(tr.T("manage.stats"),
			bot.Username, total, today, week, referrals, contests, broadcasts)

		respond(c)
		return editOrSend(c, text, kb.BackToBot(botID))
	}
}

// NewToggleHandler pauses or resumes a child bot.
func NewToggleHandler(bots repository.BotRepository, runner BotRunner, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_toggle_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		next := !bot.Active
		if err := bots.SetActive(ctx, botID, next); err != nil {
			return err
		}
		bot.Active = next

		if next {
			if err := runner.Start(ctx, bot); err != nil {
				log.Error("failed to resume child bot", slog.Int64("bot_id", botID), slog.Any("error", err))
			}
		} else {
			runner.Stop(botID)
		}

		title := tr.T("manage.disabled")
		if next {
			title = tr.T("manage.enabled")
		}

		respond(c)
		return editOrSend(c, title, kb.ManageMenu(bot))
	}
}

// NewRestartHandler bounces a running child bot so it picks up new settings.
func NewRestartHandler(bots repository.BotRepository, runner BotRunner, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_restart_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		if !bot.Active {
			respond(c)
			return editOrSend(c, tr.T("manage.disabled"), kb.ManageMenu(bot))
		}

		if err := runner.Restart(ctx, bot); err != nil {
			log.Error("failed to restart child bot", slog.Int64("bot_id", botID), slog.Any("error", err))
			return err
		}

		log.Info("child bot restarted", slog.Int64("bot_id", botID))

		respond(c)
		return editOrSend(c, tr.T("manage.restarted"), kb.ManageMenu(bot))
	}
}

// NewDeleteAskHandler asks for confirmation before removing a bot.
// Platform admins may delete bots they do not own.
func NewDeleteAskHandler(admin config.AdminConfig, bots repository.BotRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_delete_ask_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := managedBot(ctx, bots, tr, admin, botID, c.Sender().ID); err != nil {
			return err
		}

		respond(c)
		return editOrSend(c, tr.T("manage.delete_confirm"), kb.DeleteConfirm(botID))
	}
}

// NewDeleteHandler stops the child bot and removes it with all its data.
func NewDeleteHandler(admin config.AdminConfig, bots repository.BotRepository, runner BotRunner, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_delete_yes_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := managedBot(ctx, bots, tr, admin, botID, c.Sender().ID); err != nil {
			return err
		}

		runner.Stop(botID)

		if err := bots.Delete(ctx, botID); err != nil {
			return err
		}

		log.Info("bot deleted", slog.Int64("bot_id", botID), slog.Int64("owner_id", c.Sender().ID))

		respond(c)
		return editOrSend(c, tr.T("builder.bot_deleted"))
	}
}
