package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/ratelimit"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/state"
	"github.com/bekzod-dev/botforge/internal/validate"
)

// NewBotCommand opens the bot registration flow by asking for a token.
func NewBotCommand(fsm state.StateMachine, bots repository.BotRepository, limiter ActionLimiter, maxBots int, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if limiter != nil {
			if err := limiter.CheckAction(ctx, userID, ratelimit.ActionBotCreation); err != nil {
				return err
			}
		}

		count, err := bots.CountByOwner(ctx, userID)
		if err != nil {
			return err
		}
		if maxBots > 0 && count >= int64(maxBots) {
			return apperrors.NewBotLimitError(maxBots)
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateAwaitingToken); err != nil {
			if stderrors.Is(err, state.ErrInvalidTransition) {
				return apperrors.NewStateError("bot creation requested mid-flow")
			}
			return err
		}

		return c.Send(tr.T("builder.send_token"))
	}
}

// NewTokenInputHandler validates the submitted token, probes it against the
// Telegram API and advances the flow to naming. Invalid input keeps the owner
// in the same step.
func NewTokenInputHandler(fsm state.StateMachine, bots repository.BotRepository, runner BotRunner, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID
		token := strings.TrimSpace(c.Text())

		if !validate.BotToken(token) {
			return c.Send(tr.T("builder.invalid_token"))
		}

		if _, err := bots.FindByToken(ctx, token); err == nil {
			return c.Send(tr.T("builder.token_in_use"))
		} else if !stderrors.Is(err, repository.ErrNotFound) {
			return err
		}

		// A flaky Telegram API must not reject a valid token outright.
		var me *telebot.User
		err := apperrors.WithRetry(ctx, func() error {
			probed, perr := runner.Probe(ctx, token)
			if perr != nil {
				return apperrors.NewTelegramError("token probe", perr)
			}
			me = probed
			return nil
		})
		if err != nil {
			log.Warn("token probe failed", slog.Int64("user_id", userID), slog.Any("error", err))
			return c.Send(tr.T("builder.token_dead"))
		}

		data := map[string]interface{}{
			"token":        token,
			"bot_username": me.Username,
			"bot_tg_id":    strconv.FormatInt(me.ID, 10),
		}
		if err := fsm.SetState(ctx, userID, state.StateAwaitingName, data); err != nil {
			return err
		}

		return c.Send(tr.T("builder.send_name"))
	}
}

// NewNameInputHandler finishes registration: it persists the bot and starts it.
func NewNameInputHandler(fsm state.StateMachine, bots repository.BotRepository, runner BotRunner, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID
		name := strings.TrimSpace(c.Text())

		if !validate.BotName(name) {
			return c.Send(tr.T("builder.invalid_name"))
		}

		st, err := fsm.GetState(ctx, userID)
		if err != nil {
			return err
		}

		token, _ := st.Context["token"].(string)
		username, _ := st.Context["bot_username"].(string)
		rawID, _ := st.Context["bot_tg_id"].(string)
		if token == "" {
			if clearErr := fsm.ClearState(ctx, userID); clearErr != nil {
				log.Error("failed to clear broken flow", slog.Int64("user_id", userID), slog.Any("error", clearErr))
			}
			return apperrors.NewStateError("token missing from registration flow")
		}

		tgID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return fmt.Errorf("parse probed bot id: %w", err)
		}

		bot := &domain.Bot{
			OwnerID:       userID,
			Token:         token,
			Name:          name,
			Username:      username,
			TelegramBotID: tgID,
			Active:        true,
		}

		created, err := bots.Create(ctx, bot)
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}

		if err := runner.Start(ctx, created); err != nil {
			// The registration survives; the supervisor retries on boot.
			log.Error("failed to start child bot", slog.Int64("bot_id", created.ID), slog.Any("error", err))
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf(tr.T("builder.bot_created"), created.Username, created.Name))
	}
}
