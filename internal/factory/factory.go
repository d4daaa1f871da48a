// Package factory supervises the fleet of child bot instances.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/broadcast"
	"github.com/bekzod-dev/botforge/internal/childbot"
	"github.com/bekzod-dev/botforge/internal/domain"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/pkg/metrics"
)

// Factory starts, stops and tracks running child bots. It satisfies the
// builder bot's runner dependency.
type Factory struct {
	bots repository.BotRepository
	deps childbot.Deps
	log  *slog.Logger

	mu      sync.RWMutex
	running map[int64]*childbot.Bot
}

// New creates an empty supervisor.
func New(bots repository.BotRepository, deps childbot.Deps, log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}

	return &Factory{
		bots:    bots,
		deps:    deps,
		log:     log,
		running: make(map[int64]*childbot.Bot),
	}
}

// Probe validates a token against the Telegram API and returns the bot identity.
func (f *Factory) Probe(ctx context.Context, token string) (*telebot.User, error) {
	tb, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, apperrors.NewTelegramError("probe token", err)
	}

	return tb.Me, nil
}

// Start launches one child bot. Starting an already running bot is a no-op.
func (f *Factory) Start(ctx context.Context, bot *domain.Bot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.running[bot.ID]; ok {
		return nil
	}

	cb, err := childbot.New(bot, f.deps)
	if err != nil {
		return fmt.Errorf("start child bot %d: %w", bot.ID, err)
	}

	f.running[bot.ID] = cb
	go cb.Start()

	metrics.SetRunningChildBots(len(f.running))
	f.log.Info("child bot launched", slog.Int64("bot_id", bot.ID), slog.String("bot", bot.Username))

	return nil
}

// Stop shuts one child bot down. Unknown ids are ignored.
func (f *Factory) Stop(botID int64) {
	f.mu.Lock()
	cb, ok := f.running[botID]
	if ok {
		delete(f.running, botID)
	}
	count := len(f.running)
	f.mu.Unlock()

	if !ok {
		return
	}

	cb.Stop()
	metrics.SetRunningChildBots(count)
	f.log.Info("child bot stopped", slog.Int64("bot_id", botID))
}

// Restart bounces one child bot, picking up changed settings.
func (f *Factory) Restart(ctx context.Context, bot *domain.Bot) error {
	f.Stop(bot.ID)
	return f.Start(ctx, bot)
}

// StartAll launches every active bot, typically on boot. A bot that fails to
// start is logged and skipped so one revoked token cannot block the rest.
func (f *Factory) StartAll(ctx context.Context) error {
	bots, err := f.bots.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active bots: %w", err)
	}

	for i := range bots {
		if err := f.Start(ctx, &bots[i]); err != nil {
			f.log.Error("child bot failed to start", slog.Int64("bot_id", bots[i].ID), slog.Any("error", err))
		}
	}

	return nil
}

// StopAll terminates the whole fleet, used during shutdown.
func (f *Factory) StopAll() {
	f.mu.Lock()
	stopped := make([]*childbot.Bot, 0, len(f.running))
	for id, cb := range f.running {
		stopped = append(stopped, cb)
		delete(f.running, id)
	}
	f.mu.Unlock()

	for _, cb := range stopped {
		cb.Stop()
	}

	metrics.SetRunningChildBots(0)
}

// Running reports the size of the running fleet.
func (f *Factory) Running() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.running)
}

// Deliverer returns a Telegram client able to send on behalf of the bot.
// Paused bots get a fresh client since they have no polling instance.
func (f *Factory) Deliverer(ctx context.Context, bot *domain.Bot) (broadcast.Deliverer, error) {
	f.mu.RLock()
	cb, ok := f.running[bot.ID]
	f.mu.RUnlock()

	if ok {
		return cb.Telebot(), nil
	}

	tb, err := telebot.NewBot(telebot.Settings{Token: bot.Token})
	if err != nil {
		return nil, apperrors.NewTelegramError("dial child bot", err)
	}

	return tb, nil
}
