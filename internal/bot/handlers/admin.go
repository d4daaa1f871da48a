package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/pkg/config"
)

// NewAdminHandler shows platform-wide counters to configured operators.
func NewAdminHandler(cfg config.AdminConfig, bots repository.BotRepository, users repository.UserRepository, contests repository.ContestRepository, runner BotRunner, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		if !cfg.IsAdmin(c.Sender().ID) {
			return c.Send(tr.T("admin.denied"))
		}

		ctx := context.Background()

		totalBots, err := bots.CountAll(ctx)
		if err != nil {
			return err
		}
		totalUsers, err := users.CountAll(ctx)
		if err != nil {
			return err
		}
		newUsers, err := users.CountSince(ctx, time.Now().AddDate(0, 0, -7))
		if err != nil {
			return err
		}
		activeContests, err := contests.CountAllActive(ctx)
		if err != nil {
			return err
		}
		submissions, err := contests.CountAllSubmissions(ctx)
		if err != nil {
			return err
		}

		return c.Send(fmt.Sprintf(tr.T("admin.stats"),
			totalBots, runner.Running(), totalUsers, newUsers, activeContests, submissions))
	}
}
