// Package broadcast delivers owner-composed messages to a bot's audience.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/pkg/metrics"
)

const (
	defaultPauseEvery = 30
	defaultPauseFor   = time.Second
)

// Deliverer sends messages on behalf of a child bot.
type Deliverer interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// BotProvider resolves a Deliverer for a registered bot.
type BotProvider interface {
	Deliverer(ctx context.Context, bot *domain.Bot) (Deliverer, error)
}

// Notifier reports the delivery outcome back to the owner.
type Notifier func(chatID int64, text string) error

// Sender walks a bot's audience sequentially. Every pauseEvery sends it
// sleeps pauseFor to stay under the Telegram flood limits. Failed sends are
// tallied, never retried.
type Sender struct {
	bots       repository.BotRepository
	botUsers   repository.BotUserRepository
	broadcasts repository.BroadcastRepository
	provider   BotProvider
	notify     Notifier
	tr         i18n.Translator
	pauseEvery int
	pauseFor   time.Duration
	log        *slog.Logger
}

// NewSender wires a delivery pipeline.
func NewSender(
	bots repository.BotRepository,
	botUsers repository.BotUserRepository,
	broadcasts repository.BroadcastRepository,
	provider BotProvider,
	notify Notifier,
	tr i18n.Translator,
	pauseEvery int,
	pauseFor time.Duration,
	log *slog.Logger,
) *Sender {
	if pauseEvery <= 0 {
		pauseEvery = defaultPauseEvery
	}
	if pauseFor <= 0 {
		pauseFor = defaultPauseFor
	}
	if log == nil {
		log = slog.Default()
	}

	return &Sender{
		bots:       bots,
		botUsers:   botUsers,
		broadcasts: broadcasts,
		provider:   provider,
		notify:     notify,
		tr:         tr,
		pauseEvery: pauseEvery,
		pauseFor:   pauseFor,
		log:        log,
	}
}

// Run delivers one stored broadcast. Broadcasts that already ran are skipped,
// which makes duplicate queue deliveries harmless.
func (s *Sender) Run(ctx context.Context, broadcastID int64) error {
	b, err := s.broadcasts.FindByID(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("load broadcast %d: %w", broadcastID, err)
	}

	if b.Status != domain.BroadcastPending {
		s.log.Info("broadcast already processed", slog.Int64("broadcast_id", broadcastID), slog.String("status", string(b.Status)))
		return nil
	}

	bot, err := s.bots.FindByID(ctx, b.BotID)
	if err != nil {
		return fmt.Errorf("load bot %d: %w", b.BotID, err)
	}

	recipients, err := s.botUsers.ListTelegramIDs(ctx, b.BotID)
	if err != nil {
		return fmt.Errorf("list audience: %w", err)
	}

	if err := s.broadcasts.MarkRunning(ctx, broadcastID, int64(len(recipients))); err != nil {
		return err
	}

	deliverer, err := s.provider.Deliverer(ctx, bot)
	if err != nil {
		if finishErr := s.broadcasts.Finish(ctx, broadcastID, domain.BroadcastFailed, 0, 0); finishErr != nil {
			s.log.Error("failed to mark broadcast failed", slog.Int64("broadcast_id", broadcastID), slog.Any("error", finishErr))
		}
		return err
	}

	content := buildContent(b)

	var sent, failed int64
	for i, chatID := range recipients {
		if ctx.Err() != nil {
			break
		}

		if _, err := deliverer.Send(&telebot.User{ID: chatID}, content); err != nil {
			failed++
			metrics.RecordBroadcastMessage(false)
			s.log.Warn("broadcast send failed", slog.Int64("broadcast_id", broadcastID), slog.Int64("chat_id", chatID), slog.Any("error", err))
		} else {
			sent++
			metrics.RecordBroadcastMessage(true)
		}

		if (i+1)%s.pauseEvery == 0 && i+1 < len(recipients) {
			select {
			case <-ctx.Done():
			case <-time.After(s.pauseFor):
			}
		}
	}

	if err := s.broadcasts.Finish(ctx, broadcastID, domain.BroadcastFinished, sent, failed); err != nil {
		return err
	}

	s.log.Info("broadcast finished",
		slog.Int64("broadcast_id", broadcastID),
		slog.Int64("sent", sent),
		slog.Int64("failed", failed))

	if s.notify != nil {
		text := fmt.Sprintf(s.tr.T("builder.broadcast_done"), sent, failed)
		if err := s.notify(b.SenderID, text); err != nil {
			s.log.Warn("owner notification failed", slog.Int64("sender_id", b.SenderID), slog.Any("error", err))
		}
	}

	return nil
}

// buildContent rebuilds the sendable payload from the stored draft.
func buildContent(b *domain.Broadcast) interface{} {
	switch b.MediaType {
	case "photo":
		return &telebot.Photo{File: telebot.File{FileID: b.MediaID}, Caption: b.Text}
	case "video":
		return &telebot.Video{File: telebot.File{FileID: b.MediaID}, Caption: b.Text}
	default:
		return b.Text
	}
}
