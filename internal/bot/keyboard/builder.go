package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/i18n"
)

// Builder renders the inline keyboards of the builder bot.
type Builder struct {
	tr  i18n.Translator
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(tr i18n.Translator, log *slog.Logger) *Builder {
	return &Builder{tr: tr, log: log}
}

func (b *Builder) t(key string) string {
	if b.tr == nil {
		return key
	}
	return b.tr.T(key)
}

// BotList builds one row per registered bot, each opening the manage menu.
func (b *Builder) BotList(bots []domain.Bot) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, bot := range bots {
		label := bot.Name
		if !bot.Active {
			label = "⏸ " + label
		}
		kb.AddRow(InlineButton{Text: label, Data: "bot_manage_" + strconv.FormatInt(bot.ID, 10)})
	}
	return kb.Build()
}

// ManageMenu builds the per-bot management menu.
func (b *Builder) ManageMenu(bot *domain.Bot) *telebot.ReplyMarkup {
	id := strconv.FormatInt(bot.ID, 10)

	toggle := InlineButton{Text: b.t("manage.enable_button"), Data: "bot_toggle_" + id}
	if bot.Active {
		toggle = InlineButton{Text: b.t("manage.disable_button"), Data: "bot_toggle_" + id}
	}

	return NewInlineKeyboard().
		AddRow(
			InlineButton{Text: b.t("manage.stats_button"), Data: "bot_stats_" + id},
			InlineButton{Text: b.t("manage.broadcast_button"), Data: "bot_broadcast_" + id},
		).
		AddRow(
			InlineButton{Text: b.t("manage.channels_button"), Data: "bot_channels_" + id},
			InlineButton{Text: b.t("manage.export_button"), Data: "bot_export_" + id},
		).
		AddRow(
			InlineButton{Text: b.t("manage.contests_button"), Data: "bot_contests_" + id},
			toggle,
		).
		AddRow(
			InlineButton{Text: b.t("manage.settings_button"), Data: "bot_settings_" + id},
			InlineButton{Text: b.t("manage.restart_button"), Data: "bot_restart_" + id},
		).
		AddRow(
			InlineButton{Text: b.t("manage.delete_button"), Data: "bot_delete_ask_" + id},
			InlineButton{Text: b.t("manage.back_button"), Data: "bots_list"},
		).
		Build()
}

// SettingsMenu builds the per-bot settings keyboard. Feature toggles show
// their current value; edit buttons open a one-message text editor.
func (b *Builder) SettingsMenu(botID int64, s *domain.BotSettings) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	onOff := func(key string, enabled bool) string {
		label := b.t(key) + ": " + b.t("manage.toggle_off")
		if enabled {
			label = b.t(key) + ": " + b.t("manage.toggle_on")
		}
		return label
	}

	return NewInlineKeyboard().
		AddRow(
			InlineButton{Text: onOff("manage.phone_toggle", s.PhoneRequired), Data: "setting_toggle_" + id + "_phone"},
			InlineButton{Text: onOff("manage.sub_toggle", s.SubscriptionEnabled), Data: "setting_toggle_" + id + "_subscription"},
		).
		AddRow(
			InlineButton{Text: onOff("manage.ref_toggle", s.ReferralEnabled), Data: "setting_toggle_" + id + "_referral"},
			InlineButton{Text: onOff("manage.bcast_toggle", s.BroadcastEnabled), Data: "setting_toggle_" + id + "_broadcast"},
		).
		AddRow(
			InlineButton{Text: b.t("manage.edit_welcome_button"), Data: "setting_edit_" + id + "_welcome"},
			InlineButton{Text: b.t("manage.edit_submsg_button"), Data: "setting_edit_" + id + "_submsg"},
		).
		AddRow(
			InlineButton{Text: b.t("manage.edit_phonemsg_button"), Data: "setting_edit_" + id + "_phonemsg"},
			InlineButton{Text: b.t("manage.edit_guide_button"), Data: "setting_edit_" + id + "_guide"},
		).
		AddRow(
			InlineButton{Text: b.t("manage.rename_button"), Data: "bot_rename_" + id},
			InlineButton{Text: b.t("manage.admins_button"), Data: "bot_admins_" + id},
		).
		AddRow(
			InlineButton{Text: b.t("manage.back_button"), Data: "bot_manage_" + id},
		).
		Build()
}

// AdminList builds the delegated admin keyboard for a bot. Every admin row
// carries a remove button; the last row delegates a new admin.
func (b *Builder) AdminList(botID int64, adminIDs []int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	kb := NewInlineKeyboard()
	for _, adminID := range adminIDs {
		kb.AddRow(InlineButton{
			Text: "❌ " + strconv.FormatInt(adminID, 10),
			Data: "admin_remove_" + id + "_" + strconv.FormatInt(adminID, 10),
		})
	}
	kb.AddRow(InlineButton{Text: b.t("manage.add_admin_button"), Data: "admin_add_" + id})
	kb.AddRow(InlineButton{Text: b.t("manage.back_button"), Data: "bot_settings_" + id})
	return kb.Build()
}

// DeleteConfirm builds the yes/no keyboard shown before a bot is removed.
func (b *Builder) DeleteConfirm(botID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	return NewInlineKeyboard().
		AddRow(
			InlineButton{Text: b.t("builder.confirm_button"), Data: "bot_delete_yes_" + id},
			InlineButton{Text: b.t("builder.cancel_button"), Data: "bot_manage_" + id},
		).
		Build()
}

// BroadcastConfirm builds the yes/no keyboard shown before a broadcast is queued.
func (b *Builder) BroadcastConfirm(botID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	return NewInlineKeyboard().
		AddRow(
			InlineButton{Text: b.t("builder.confirm_button"), Data: "broadcast_send_" + id},
			InlineButton{Text: b.t("builder.cancel_button"), Data: "broadcast_cancel"},
		).
		Build()
}

// ChannelList builds the mandatory channel management keyboard for a bot.
// Every channel row carries a remove button; the last row adds a new channel.
func (b *Builder) ChannelList(botID int64, channels []domain.Channel) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	kb := NewInlineKeyboard()
	for _, ch := range channels {
		kb.AddRow(InlineButton{
			Text: "❌ " + ch.DisplayName(),
			Data: "channel_remove_" + id + "_" + ch.ChannelID,
		})
	}
	kb.AddRow(InlineButton{Text: b.t("manage.add_channel_button"), Data: "channel_add_" + id})
	kb.AddRow(InlineButton{Text: b.t("manage.back_button"), Data: "bot_manage_" + id})
	return kb.Build()
}

// ContestList builds the contest management keyboard for a bot. Running
// contests get an end and a winners button; finished ones only winners.
func (b *Builder) ContestList(botID int64, contests []domain.Contest) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	kb := NewInlineKeyboard()
	for _, contest := range contests {
		cid := id + "_" + strconv.FormatInt(contest.ID, 10)
		row := []InlineButton{
			{Text: b.t("manage.winners_button") + " " + contest.Title, Data: "contest_win_" + cid},
		}
		if contest.Status == domain.ContestActive {
			row = append(row, InlineButton{Text: b.t("manage.end_contest_button"), Data: "contest_end_" + cid})
		}
		kb.AddRow(row...)
	}
	kb.AddRow(InlineButton{Text: b.t("manage.new_contest_button"), Data: "contest_new_" + id})
	kb.AddRow(InlineButton{Text: b.t("manage.back_button"), Data: "bot_manage_" + id})
	return kb.Build()
}

// BackToBot builds a single back button into the manage menu.
func (b *Builder) BackToBot(botID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(botID, 10)

	return NewInlineKeyboard().
		AddRow(InlineButton{Text: b.t("manage.back_button"), Data: "bot_manage_" + id}).
		Build()
}
