package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/ratelimit"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/state"
)

// BroadcastDeps bundles the collaborators of the broadcast flow.
type BroadcastDeps struct {
	FSM        state.StateMachine
	Bots       repository.BotRepository
	BotUsers   repository.BotUserRepository
	Settings   repository.SettingsRepository
	Broadcasts repository.BroadcastRepository
	Queue      BroadcastQueue
	Limiter    ActionLimiter
	Keyboard   *keyboard.Builder
	Translator i18n.Translator
	Log        *slog.Logger
}

func (d BroadcastDeps) log() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// NewBroadcastStartHandler opens message composition for one bot.
func NewBroadcastStartHandler(deps BroadcastDeps) CallbackHandler {
	tr := deps.Translator

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_broadcast_")
		if err != nil {
			return err
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if deps.Limiter != nil {
			if err := deps.Limiter.CheckAction(ctx, userID, ratelimit.ActionBroadcast); err != nil {
				return err
			}
		}

		if _, err := ownedBot(ctx, deps.Bots, tr, botID, userID); err != nil {
			return err
		}

		settings, err := deps.Settings.Get(ctx, botID)
		if err != nil {
			return err
		}
		if !settings.BroadcastEnabled {
			respond(c)
			return c.Send(tr.T("builder.broadcast_disabled"))
		}

		data := map[string]interface{}{"bot_id": strconv.FormatInt(botID, 10)}
		if err := deps.FSM.SetState(ctx, userID, state.StateAwaitingBroadcast, data); err != nil {
			return err
		}

		respond(c)
		return c.Send(tr.T("builder.send_broadcast"))
	}
}

// NewBroadcastInputHandler captures the composed message and asks for a
// confirmation with the audience size.
func NewBroadcastInputHandler(deps BroadcastDeps) Handler {
	tr := deps.Translator

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		st, err := deps.FSM.GetState(ctx, userID)
		if err != nil {
			return err
		}

		rawID, _ := st.Context["bot_id"].(string)
		botID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return apperrors.NewStateError("broadcast flow lost its bot id")
		}

		text, mediaID, mediaType := extractBroadcastContent(c.Message())
		if text == "" && mediaID == "" {
			return c.Send(tr.T("builder.broadcast_empty"))
		}

		audience, err := deps.BotUsers.Count(ctx, botID)
		if err != nil {
			return err
		}

		data := map[string]interface{}{
			"bot_id":     rawID,
			"text":       text,
			"media_id":   mediaID,
			"media_type": mediaType,
		}
		if err := deps.FSM.SetState(ctx, userID, state.StateAwaitingBroadcastConfirm, data); err != nil {
			return err
		}

		prompt := fmt.Sprintf(tr.T("builder.broadcast_confirm"), audience)
		return c.Send(prompt, deps.Keyboard.BroadcastConfirm(botID))
	}
}

// NewBroadcastConfirmHandler persists the broadcast and hands it to the queue.
func NewBroadcastConfirmHandler(deps BroadcastDeps) CallbackHandler {
	tr := deps.Translator
	log := deps.log()

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "broadcast_send_")
		if err != nil {
			return err
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if _, err := ownedBot(ctx, deps.Bots, tr, botID, userID); err != nil {
			return err
		}

		st, err := deps.FSM.GetState(ctx, userID)
		if err != nil {
			return err
		}
		if st.CurrentState != state.StateAwaitingBroadcastConfirm {
			return apperrors.NewStateError("broadcast confirmed outside of its flow")
		}

		text, _ := st.Context["text"].(string)
		mediaID, _ := st.Context["media_id"].(string)
		mediaType, _ := st.Context["media_type"].(string)

		created, err := deps.Broadcasts.Create(ctx, &domain.Broadcast{
			BotID:     botID,
			SenderID:  userID,
			Text:      text,
			MediaID:   mediaID,
			MediaType: mediaType,
		})
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}

		if err := deps.Queue.EnqueueBroadcast(ctx, created.ID); err != nil {
			return err
		}

		if err := deps.FSM.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		log.Info("broadcast queued",
			slog.Int64("broadcast_id", created.ID),
			slog.Int64("bot_id", botID),
			slog.Int64("sender_id", userID))

		respond(c)
		return editOrSend(c, tr.T("builder.broadcast_queued"))
	}
}

// NewBroadcastCancelHandler drops the draft and returns to idle.
func NewBroadcastCancelHandler(deps BroadcastDeps) CallbackHandler {
	tr := deps.Translator

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		if err := deps.FSM.ClearState(ctx, c.Sender().ID); err != nil {
			return err
		}

		respond(c)
		return editOrSend(c, tr.T("common.cancelled"))
	}
}

// extractBroadcastContent pulls reusable content out of an owner's message.
// Photos and videos are forwarded by file id, so the child bot can resend
// them without re-uploading.
func extractBroadcastContent(msg *telebot.Message) (text, mediaID, mediaType string) {
	if msg == nil {
		return "", "", ""
	}

	switch {
	case msg.Photo != nil:
		return msg.Caption, msg.Photo.FileID, "photo"
	case msg.Video != nil:
		return msg.Caption, msg.Video.FileID, "video"
	default:
		return msg.Text, "", ""
	}
}
