package childbot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/session"
	"github.com/bekzod-dev/botforge/internal/validate"
	"github.com/bekzod-dev/botforge/pkg/metrics"
)

const (
	subscriptionCheckCallback = "sub_check"
	referralPayloadPrefix     = "ref_"
)

// chat adapts a channel identifier (@username or numeric id) to telebot.
type chat string

func (c chat) Recipient() string { return string(c) }

// handleStart runs on every /start: it tracks the user, attributes referrals
// and restarts the onboarding gate from the first step.
func (b *Bot) handleStart(c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	metrics.RecordChildUpdate("start")

	if _, err := b.track(ctx, sender); err != nil {
		return err
	}

	settings, err := b.botSettings(ctx)
	if err != nil {
		return err
	}

	if settings.ReferralEnabled {
		if referrerID, ok := parseReferralPayload(c.Message().Payload); ok {
			attributed, err := b.deps.Referrals.Attribute(ctx, b.meta.ID, referrerID, sender.ID)
			if err != nil {
				b.log.Error("referral attribution failed", slog.Int64("referrer_id", referrerID), slog.Any("error", err))
			} else if attributed {
				b.log.Info("referral attributed", slog.Int64("referrer_id", referrerID), slog.Int64("referred_id", sender.ID))
			}
		}
	}

	// Phone verification repeats on every start; the session is rebuilt.
	sess, err := b.deps.Sessions.Reset(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}

	return b.advance(c, sess, settings)
}

// advance walks the onboarding gate until a step blocks or the menu opens.
// The order is fixed: channel subscription, then phone verification.
func (b *Bot) advance(c telebot.Context, sess *session.Session, settings *domain.BotSettings) error {
	sender := c.Sender()
	ctx := context.Background()

	// The owner and delegated admins skip the gate entirely.
	if sender.ID == b.meta.OwnerID || settings.IsAdmin(sender.ID) {
		sess.Step = session.StepDone
		if err := b.deps.Sessions.Save(ctx, sess); err != nil {
			return err
		}
		if err := c.Send(b.deps.Translator.T("gate.admin_shortcut")); err != nil {
			return err
		}
		return b.sendMainMenu(c, settings)
	}

	if sess.Step == session.StepSubscription {
		if settings.SubscriptionEnabled {
			channels, err := b.deps.Channels.ListByBot(ctx, b.meta.ID)
			if err != nil {
				return err
			}
			if missing := b.missingChannels(ctx, channels, sender); len(missing) > 0 {
				if err := b.deps.Sessions.Save(ctx, sess); err != nil {
					return err
				}
				return b.sendSubscriptionPrompt(c, settings, missing)
			}
		}
		sess.Step = session.StepPhone
	}

	if sess.Step == session.StepPhone {
		if settings.PhoneRequired && !sess.PhoneVerified {
			if err := b.deps.Sessions.Save(ctx, sess); err != nil {
				return err
			}
			return b.sendPhonePrompt(c, settings)
		}
		sess.Step = session.StepDone
	}

	if err := b.deps.Sessions.Save(ctx, sess); err != nil {
		return err
	}

	return b.sendMainMenu(c, settings)
}

func (b *Bot) sendSubscriptionPrompt(c telebot.Context, settings *domain.BotSettings, channels []domain.Channel) error {
	markup := &telebot.ReplyMarkup{}
	rows := make([][]telebot.InlineButton, 0, len(channels)+1)
	for _, ch := range channels {
		rows = append(rows, []telebot.InlineButton{{
			Text: b.deps.Translator.T("gate.join_button") + " " + ch.DisplayName(),
			URL:  ch.Link(),
		}})
	}
	rows = append(rows, []telebot.InlineButton{{
		Text: b.deps.Translator.T("gate.done_button"),
		Data: subscriptionCheckCallback,
	}})
	markup.InlineKeyboard = rows

	return c.Send(renderSubscriptionMessage(settings.SubscriptionMessage, channels), markup)
}

func (b *Bot) sendPhonePrompt(c telebot.Context, settings *domain.BotSettings) error {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
	markup.Reply(markup.Row(markup.Contact(b.deps.Translator.T("gate.share_phone_button"))))

	return c.Send(settings.PhoneRequestMessage, markup)
}

// missingChannels returns the mandatory channels the user has not joined.
// A channel the membership lookup cannot inspect counts as not joined.
func (b *Bot) missingChannels(ctx context.Context, channels []domain.Channel, user telebot.Recipient) []domain.Channel {
	var missing []domain.Channel
	for _, ch := range channels {
		var member *telebot.ChatMember
		// Transient API failures must not lock users out of the gate.
		err := apperrors.WithRetry(ctx, func() error {
			m, merr := b.memberOf(chat(ch.ChannelID), user)
			if merr != nil {
				return apperrors.NewTelegramError("chat member lookup", merr)
			}
			member = m
			return nil
		})
		if err != nil {
			b.log.Warn("membership check failed", slog.String("channel", ch.ChannelID), slog.Any("error", err))
			missing = append(missing, ch)
			continue
		}
		if !isSubscribed(member.Role) {
			missing = append(missing, ch)
		}
	}
	return missing
}

// handleSubscriptionCheck serves the "✅ Bajarildi" button: it re-verifies
// membership in every mandatory channel and re-runs the gate on success.
func (b *Bot) handleSubscriptionCheck(c telebot.Context) error {
	sender := c.Sender()
	ctx := context.Background()

	settings, err := b.botSettings(ctx)
	if err != nil {
		return err
	}

	channels, err := b.deps.Channels.ListByBot(ctx, b.meta.ID)
	if err != nil {
		return err
	}

	if len(b.missingChannels(ctx, channels, sender)) > 0 {
		return c.Respond(&telebot.CallbackResponse{
			Text:      b.deps.Translator.T("gate.not_subscribed"),
			ShowAlert: true,
		})
	}

	sess, err := b.deps.Sessions.Get(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}
	sess.Step = session.StepPhone

	if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
		b.log.Warn("callback ack failed", slog.Any("error", err))
	}

	return b.advance(c, sess, settings)
}

// handleContact consumes the shared phone number. Contacts belonging to
// someone other than the sender are rejected.
func (b *Bot) handleContact(c telebot.Context) error {
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil || msg.Contact == nil {
		return nil
	}

	ctx := context.Background()
	metrics.RecordChildUpdate("contact")

	if msg.Contact.UserID != sender.ID {
		return c.Send(b.deps.Translator.T("gate.phone_foreign"))
	}

	if !validate.Phone(msg.Contact.PhoneNumber) {
		return c.Send(b.deps.Translator.T("gate.phone_invalid"))
	}

	if err := b.deps.Users.UpdatePhone(ctx, sender.ID, msg.Contact.PhoneNumber); err != nil {
		return err
	}

	sess, err := b.deps.Sessions.Get(ctx, b.meta.ID, sender.ID)
	if err != nil {
		return err
	}
	sess.PhoneVerified = true

	settings, err := b.botSettings(ctx)
	if err != nil {
		return err
	}

	return b.advance(c, sess, settings)
}

// parseReferralPayload extracts the inviter id from a ref_<id> deep link.
func parseReferralPayload(payload string) (int64, bool) {
	if !strings.HasPrefix(payload, referralPayloadPrefix) {
		return 0, false
	}

	id, err := strconv.ParseInt(payload[len(referralPayloadPrefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// renderSubscriptionMessage substitutes the {channels} placeholder with a
// numbered channel list.
func renderSubscriptionMessage(template string, channels []domain.Channel) string {
	var sb strings.Builder
	for i, ch := range channels {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(ch.DisplayName())
	}

	return strings.ReplaceAll(template, "{channels}", sb.String())
}

func isSubscribed(role telebot.MemberStatus) bool {
	switch role {
	case telebot.Creator, telebot.Administrator, telebot.Member:
		return true
	default:
		return false
	}
}
