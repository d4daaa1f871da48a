// Package childbot runs the templated contest bot behind one registered token.
// Every instance shares the persistence layer but serves its own audience,
// onboarding gate and referral program.
package childbot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/referral"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/session"
	"github.com/bekzod-dev/botforge/pkg/metrics"
)

const (
	pollTimeout = 10 * time.Second
	settingsTTL = time.Minute
)

// Deps bundles the shared services a child bot operates on.
type Deps struct {
	Users      repository.UserRepository
	BotUsers   repository.BotUserRepository
	Settings   repository.SettingsRepository
	Channels   repository.ChannelRepository
	Contests   repository.ContestRepository
	Referrals  *referral.Service
	Sessions   *session.Store
	Translator i18n.Translator
	Errors     *apperrors.Handler
	Log        *slog.Logger
}

// Bot serves the audience of one registered child bot.
type Bot struct {
	meta *domain.Bot
	tb   *telebot.Bot
	deps Deps
	log  *slog.Logger

	// memberOf resolves channel membership, normally via the Telegram API.
	memberOf func(chat, user telebot.Recipient) (*telebot.ChatMember, error)

	mu         sync.Mutex
	settings   *domain.BotSettings
	settingsAt time.Time
}

// New dials the Telegram API with the child token and wires its handlers.
func New(meta *domain.Bot, deps Deps) (*Bot, error) {
	tb, err := telebot.NewBot(telebot.Settings{
		Token:  meta.Token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize child bot %d: %w", meta.ID, err)
	}

	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.Int64("bot_id", meta.ID), slog.String("bot", meta.Username))

	b := &Bot{
		meta:     meta,
		tb:       tb,
		deps:     deps,
		log:      log,
		memberOf: tb.ChatMemberOf,
	}

	tb.Handle("/start", b.guard(b.handleStart))
	tb.Handle(telebot.OnContact, b.guard(b.handleContact))
	tb.Handle(telebot.OnText, b.guard(b.handleText))
	tb.Handle(telebot.OnPhoto, b.guard(b.handleMedia))
	tb.Handle(telebot.OnVideo, b.guard(b.handleMedia))
	tb.Handle(telebot.OnCallback, b.guard(b.handleCallback))

	return b, nil
}

// guard wraps a handler with panic recovery and user-facing error handling.
// telebot runs every handler in its own goroutine, so an unrecovered panic in
// one child bot would take down the whole multi-tenant process.
func (b *Bot) guard(h telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("panic in child bot handler",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				_ = c.Send(b.deps.Translator.T("common.error"))
			}
		}()

		err := h(c)
		if err == nil {
			return nil
		}

		msg := b.deps.Translator.T("common.error")
		if b.deps.Errors != nil {
			if m, _ := b.deps.Errors.Handle(context.Background(), err); m != "" {
				msg = m
			}
		} else {
			b.log.Error("child bot handler failed", slog.Any("error", err))
		}
		_ = c.Send(msg)

		return nil
	}
}

// Start runs the polling loop. It blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("child bot started")
	b.tb.Start()
}

// Stop terminates polling.
func (b *Bot) Stop() {
	b.log.Info("child bot stopping")
	b.tb.Stop()
}

// Meta returns the registration row this instance was started from.
func (b *Bot) Meta() *domain.Bot {
	return b.meta
}

// Telebot exposes the underlying client, used by the broadcast sender.
func (b *Bot) Telebot() *telebot.Bot {
	return b.tb
}

// botSettings returns the bot configuration, cached briefly so owner edits
// show up without a restart while start floods stay off the database.
func (b *Bot) botSettings(ctx context.Context) (*domain.BotSettings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.settings != nil && time.Since(b.settingsAt) < settingsTTL {
		return b.settings, nil
	}

	settings, err := b.deps.Settings.Get(ctx, b.meta.ID)
	if err != nil {
		return nil, err
	}

	b.settings = settings
	b.settingsAt = time.Now()
	return settings, nil
}

// track registers the sender in the platform user table and the bot audience.
func (b *Bot) track(ctx context.Context, sender *telebot.User) (*domain.User, error) {
	u, err := b.deps.Users.Upsert(ctx, &domain.User{
		TelegramID: sender.ID,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
		Username:   sender.Username,
	})
	if err != nil {
		return nil, err
	}

	if err := b.deps.BotUsers.Upsert(ctx, b.meta.ID, u.ID); err != nil {
		return nil, err
	}

	return u, nil
}

func (b *Bot) handleCallback(c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return nil
	}

	metrics.RecordChildUpdate("callback")

	data := trimCallbackData(cb.Data)
	switch {
	case data == subscriptionCheckCallback:
		return b.handleSubscriptionCheck(c)
	case len(data) > len(contestJoinPrefix) && data[:len(contestJoinPrefix)] == contestJoinPrefix:
		return b.handleContestJoin(c, data[len(contestJoinPrefix):])
	case len(data) > len(contestSubmitPrefix) && data[:len(contestSubmitPrefix)] == contestSubmitPrefix:
		return b.handleContestSubmit(c, data[len(contestSubmitPrefix):])
	default:
		b.log.Info("unknown callback", slog.String("data", data))
		return nil
	}
}

// trimCallbackData strips the unique marker telebot prepends to callbacks.
func trimCallbackData(data string) string {
	for i := 0; i < len(data); i++ {
		if data[i] == '\f' {
			return data[i+1:]
		}
	}
	return data
}
