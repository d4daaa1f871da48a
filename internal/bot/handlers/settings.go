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

// settingPrompts maps an editable settings field to the prompt the owner
// sees before sending the replacement text.
var settingPrompts = map[string]string{
	"welcome":  "builder.send_welcome",
	"submsg":   "builder.send_submsg",
	"phonemsg": "builder.send_phonemsg",
	"guide":    "builder.send_guide",
}

// NewSettingsHandler renders the per-bot settings menu.
func NewSettingsHandler(bots repository.BotRepository, settings repository.SettingsRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_settings_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		s, err := settings.Get(ctx, botID)
		if err != nil {
			return err
		}

		respond(c)
		return editOrSend(c, fmt.Sprintf(tr.T("manage.settings_title"), bot.Username), kb.SettingsMenu(botID, s))
	}
}

// NewSettingToggleHandler flips one boolean settings field and re-renders
// the menu so the button labels show the new value.
func NewSettingToggleHandler(bots repository.BotRepository, settings repository.SettingsRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, field, err := callbackIDField(c, "setting_toggle_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		bot, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID)
		if err != nil {
			return err
		}

		s, err := settings.Get(ctx, botID)
		if err != nil {
			return err
		}

		upd, ok := toggleUpdate(s, field)
		if !ok {
			return fmt.Errorf("handlers: unknown settings toggle %q", field)
		}

		if err := settings.Update(ctx, botID, upd); err != nil {
			return err
		}

		s, err = settings.Get(ctx, botID)
		if err != nil {
			return err
		}

		log.Info("bot setting toggled", slog.Int64("bot_id", botID), slog.String("field", field))

		respond(c)
		return editOrSend(c, fmt.Sprintf(tr.T("manage.settings_title"), bot.Username), kb.SettingsMenu(botID, s))
	}
}

// NewSettingEditHandler asks the owner for the replacement text of one
// settings field.
func NewSettingEditHandler(fsm state.StateMachine, bots repository.BotRepository, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, field, err := callbackIDField(c, "setting_edit_")
		if err != nil {
			return err
		}

		promptKey, ok := settingPrompts[field]
		if !ok {
			return fmt.Errorf("handlers: unknown settings field %q", field)
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		data := map[string]interface{}{
			"bot_id": strconv.FormatInt(botID, 10),
			"field":  field,
		}
		if err := fsm.SetState(ctx, userID, state.StateAwaitingSetting, data); err != nil {
			return err
		}

		respond(c)
		return c.Send(tr.T(promptKey))
	}
}

// NewSettingInputHandler stores the submitted replacement text.
func NewSettingInputHandler(fsm state.StateMachine, bots repository.BotRepository, settings repository.SettingsRepository, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		st, err := fsm.GetState(ctx, userID)
		if err != nil {
			return err
		}

		rawID, _ := st.Context["bot_id"].(string)
		botID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return apperrors.NewStateError("settings flow lost its bot id")
		}
		field, _ := st.Context["field"].(string)

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		upd, ok := settingUpdate(field, c.Message())
		if !ok {
			return c.Send(tr.T("builder.setting_empty"))
		}

		if err := settings.Update(ctx, botID, upd); err != nil {
			return err
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		log.Info("bot setting updated", slog.Int64("bot_id", botID), slog.String("field", field))

		return c.Send(tr.T("builder.setting_saved"))
	}
}

// NewAdminsHandler lists the delegated admins of a bot.
func NewAdminsHandler(bots repository.BotRepository, settings repository.SettingsRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_admins_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		s, err := settings.Get(ctx, botID)
		if err != nil {
			return err
		}

		title := tr.T("manage.admins_title")
		if len(s.AdminIDs) == 0 {
			title = tr.T("manage.admins_empty")
		}

		respond(c)
		return editOrSend(c, title, kb.AdminList(botID, s.AdminIDs))
	}
}

// NewAdminAddHandler asks the owner for the Telegram id of a new admin.
func NewAdminAddHandler(fsm state.StateMachine, bots repository.BotRepository, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "admin_add_")
		if err != nil {
			return err
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		data := map[string]interface{}{"bot_id": strconv.FormatInt(botID, 10)}
		if err := fsm.SetState(ctx, userID, state.StateAwaitingAdmin, data); err != nil {
			return err
		}

		respond(c)
		return c.Send(tr.T("builder.send_admin_id"))
	}
}

// NewAdminInputHandler stores a submitted admin Telegram id.
func NewAdminInputHandler(fsm state.StateMachine, bots repository.BotRepository, settings repository.SettingsRepository, tr i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		adminID, err := strconv.ParseInt(strings.TrimSpace(c.Text()), 10, 64)
		if err != nil || adminID <= 0 {
			return c.Send(tr.T("builder.invalid_admin_id"))
		}

		st, err := fsm.GetState(ctx, userID)
		if err != nil {
			return err
		}

		rawID, _ := st.Context["bot_id"].(string)
		botID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return apperrors.NewStateError("admin flow lost its bot id")
		}

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		if err := settings.AddAdmin(ctx, botID, adminID); err != nil {
			return err
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		log.Info("bot admin delegated", slog.Int64("bot_id", botID), slog.Int64("admin_id", adminID))

		return c.Send(tr.T("manage.admin_added"))
	}
}

// NewAdminRemoveHandler revokes a delegated admin.
func NewAdminRemoveHandler(bots repository.BotRepository, settings repository.SettingsRepository, kb *keyboard.Builder, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, adminID, err := callbackIDPair(c, "admin_remove_")
		if err != nil {
			return err
		}

		ctx := context.Background()

		if _, err := ownedBot(ctx, bots, tr, botID, c.Sender().ID); err != nil {
			return err
		}

		if err := settings.RemoveAdmin(ctx, botID, adminID); err != nil {
			return err
		}

		s, err := settings.Get(ctx, botID)
		if err != nil {
			return err
		}

		title := tr.T("manage.admin_removed")
		if len(s.AdminIDs) == 0 {
			title += "\n\n" + tr.T("manage.admins_empty")
		}

		respond(c)
		return editOrSend(c, title, kb.AdminList(botID, s.AdminIDs))
	}
}

// NewRenameHandler asks the owner for a new display name.
func NewRenameHandler(fsm state.StateMachine, bots repository.BotRepository, tr i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		botID, err := callbackID(c, "bot_rename_")
		if err != nil {
			return err
		}

		ctx := context.Background()
		userID := c.Sender().ID

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		data := map[string]interface{}{"bot_id": strconv.FormatInt(botID, 10)}
		if err := fsm.SetState(ctx, userID, state.StateAwaitingRename, data); err != nil {
			return err
		}

		respond(c)
		return c.Send(tr.T("builder.send_new_name"))
	}
}

// NewRenameInputHandler stores the submitted display name.
func NewRenameInputHandler(fsm state.StateMachine, bots repository.BotRepository, tr i18n.Translator, log *slog.Logger) Handler {
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

		rawID, _ := st.Context["bot_id"].(string)
		botID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return apperrors.NewStateError("rename flow lost its bot id")
		}

		if _, err := ownedBot(ctx, bots, tr, botID, userID); err != nil {
			return err
		}

		if err := bots.UpdateName(ctx, botID, name); err != nil {
			return err
		}

		if err := fsm.TransitionTo(ctx, userID, state.StateIdle); err != nil {
			return err
		}

		log.Info("bot renamed", slog.Int64("bot_id", botID))

		return c.Send(fmt.Sprintf(tr.T("builder.renamed"), name))
	}
}

// callbackIDField parses "<prefix><botID>_<field>" callback data.
func callbackIDField(c telebot.Context, prefix string) (int64, string, error) {
	cb := c.Callback()
	if cb == nil {
		return 0, "", fmt.Errorf("handlers: update is not a callback")
	}

	raw := strings.TrimPrefix(strings.TrimSpace(cb.Data), prefix)
	parts := strings.SplitN(raw, "_", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("handlers: bad settings payload %q", raw)
	}

	botID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("handlers: bad bot id in %q: %w", raw, err)
	}

	return botID, parts[1], nil
}

// toggleUpdate builds the partial update that flips one boolean field.
func toggleUpdate(s *domain.BotSettings, field string) (domain.SettingsUpdate, bool) {
	var upd domain.SettingsUpdate
	switch field {
	case "phone":
		v := !s.PhoneRequired
		upd.PhoneRequired = &v
	case "subscription":
		v := !s.SubscriptionEnabled
		upd.SubscriptionEnabled = &v
	case "referral":
		v := !s.ReferralEnabled
		upd.ReferralEnabled = &v
	case "broadcast":
		v := !s.BroadcastEnabled
		upd.BroadcastEnabled = &v
	default:
		return upd, false
	}
	return upd, true
}

// settingUpdate builds the partial update for one edited text field. Welcome
// and guide accept media with a caption, the other fields are text only.
func settingUpdate(field string, msg *telebot.Message) (domain.SettingsUpdate, bool) {
	text, mediaID, mediaType := extractBroadcastContent(msg)

	var upd domain.SettingsUpdate
	switch field {
	case "welcome":
		if text == "" && mediaID == "" {
			return upd, false
		}
		upd.WelcomeMessage = &text
		upd.WelcomeMedia = &mediaID
		upd.WelcomeMediaType = &mediaType
	case "submsg":
		if text == "" {
			return upd, false
		}
		upd.SubscriptionMessage = &text
	case "phonemsg":
		if text == "" {
			return upd, false
		}
		upd.PhoneRequestMessage = &text
	case "guide":
		if text == "" && mediaID == "" {
			return upd, false
		}
		upd.GuideText = &text
		upd.GuideMedia = &mediaID
		upd.GuideMediaType = &mediaType
	default:
		return upd, false
	}
	return upd, true
}
