package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/state"
	"github.com/bekzod-dev/botforge/internal/validate"
)

// NewChannelsHandler lists the mandatory subscription channels of a bot.
func NewChannelsHandler(bots repository.BotRepository, channels repository.ChannelRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_channels_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		list, err := channels.ListByBot(ctx, botID)
		if err != nil {
			return err
		}

		title := tr.T("manage.channels_title")
		if len(list) == 0 {
			title = tr.T("manage.channels_empty")
		}

		respond(c)
		return editOrSend(c, title, kb.ChannelList(botID, list))
	}
}

// NewChannelAddHandler asks the owner for a channel identifier.
func NewChannelAddHandler(fsm state.StateMachine, bots repository.BotRepository, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "channel_add_")
		if err != nil {
			return err
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		data := map[string]interface{}{"bot_id": strconv.FormatInt(botID, 10)}
		if err := fsm.SetState(ctx, userID, state.StateAwaitingChannel, data); err != nil {
			return err
		}

		respond(c)
		return c.Send(tr.T("builder.send_channel"))
	}
}

// NewChannelInputHandler stores a submitted channel identifier.
func NewChannelInputHandler(fsm state.StateMachine, bots repository.BotRepository, channels repository.ChannelRepository, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID
		ident := strings.TrimSpace(c.Text())

		if !validate.ChannelID(ident) {
			return c.Send(tr.T("builder.invalid_channel"))
		}

		st, err := fsm.GetState(ctx, userID)
		if err != nil {
			return err
		}

		rawID, _ := st.Context["bot_id"].(string)
		botID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return apperrors.NewStateError("channel flow lost its bot id")
		}

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		ch, err := channels.Add(ctx, &domain.Channel{BotID: botID, ChannelID: ident})
		if err != nil {
			return err
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf(tr.T("builder.channel_added"), ch.DisplayName()))
	}
}

// NewChannelRemoveHandler detaches a channel from the subscription gate.
func NewChannelRemoveHandler(bots repository.BotRepository, channels repository.ChannelRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		// Data layout: channel_remove_<botID>_<channelID>.
		raw := strings.TrimPrefix(strings.TrimSpace(c.Callback().Data), "channel_remove_")
		parts := strings.SplitN(raw, "_", 2)
		if len(parts) != 2 {
			return fmt.Errorf("handlers: bad channel remove payload %q", raw)
		}

		botID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("handlers: bad bot id in %q: %w", raw, err)
		}
		channelID := parts[1]

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		if err := channels.Remove(ctx, botID, channelID); err != nil {
			return err
		}

		list, err := channels.ListByBot(ctx, botID)
		if err != nil {
			return err
		}

		title := tr.T("manage.channel_removed")
		if len(list) == 0 {
			title += "\n\n" + tr.T("manage.channels_empty")
		}

		respond(c)
		return editOrSend(c, title, kb.ChannelList(botID, list))
	}
}
