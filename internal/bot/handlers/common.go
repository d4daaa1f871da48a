package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/pkg/config"
)

// callbackID extracts the numeric id that follows a callback data prefix.
func callbackID(c telebot.Context, prefix string) (int64, error) {
	cb := c.Callback()
	if cb == nil {
		return 0, fmt.Errorf("handlers: update is not a callback")
	}

	raw := strings.TrimPrefix(strings.TrimSpace(cb.Data), prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("handlers: bad callback id %q: %w", raw, err)
	}

	return id, nil
}

// callbackIDPair parses two underscore-separated ids after the prefix.
func callbackIDPair(c telebot.Context, prefix string) (int64, int64, error) {
	cb := c.Callback()
	if cb == nil {
		return 0, 0, fmt.Errorf("handlers: not a callback")
	}

	raw := strings.TrimPrefix(strings.TrimSpace(cb.Data), prefix)
	parts := strings.SplitN(raw, "_", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("handlers: bad callback pair %q", raw)
	}

	first, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("handlers: bad callback id %q: %w", parts[0], err)
	}
	second, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("handlers: bad callback id %q: %w", parts[1], err)
	}

	return first, second, nil
}

// ownedBot loads a bot and verifies the sender owns it.
func ownedBot(ctx context.Context, bots repository.BotRepository, tr i18n.Translator, botID, senderID int64) (*domain.Bot, error) {
	bot, err := bots.FindByID(ctx, botID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("bot not found", tr.T("common.error"))
		}
		return nil, err
	}

	if bot.OwnerID != senderID {
		return nil, apperrors.NewValidationError("bot not owned by sender", tr.T("common.not_allowed"))
	}

	return bot, nil
}

// managedBot is ownedBot with a platform admin bypass.
func managedBot(ctx context.Context, bots repository.BotRepository, tr i18n.Translator, admin config.AdminConfig, botID, senderID int64) (*domain.Bot, error) {
	bot, err := bots.FindByID(ctx, botID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("bot not found", tr.T("common.error"))
		}
		return nil, err
	}

	if bot.OwnerID != senderID && !admin.IsAdmin(senderID) {
		return nil, apperrors.NewValidationError("bot not owned by sender", tr.T("common.not_allowed"))
	}

	return bot, nil
}

// respond acknowledges a callback so the client stops showing the spinner.
func respond(c telebot.Context) {
	if c.Callback() != nil {
		_ = c.Respond(&telebot.CallbackResponse{})
	}
}

// editOrSend edits the callback message in place, falling back to a new message.
func editOrSend(c telebot.Context, what interface{}, opts ...interface{}) error {
	if c.Callback() != nil {
		if err := c.Edit(what, opts...); err == nil {
			return nil
		}
	}
	return c.Send(what, opts...)
}
