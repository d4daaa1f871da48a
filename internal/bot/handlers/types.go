package handlers

import (
	"bytes"
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/ratelimit"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// BotRunner controls the lifecycle of child bots on behalf of the builder.
type BotRunner interface {
	// Probe checks a token against the Telegram API and returns the bot identity.
	Probe(ctx context.Context, token string) (*telebot.User, error)
	Start(ctx context.Context, bot *domain.Bot) error
	Stop(botID int64)
	Restart(ctx context.Context, bot *domain.Bot) error
	Running() int
}

// BroadcastQueue enqueues broadcast delivery jobs for background processing.
type BroadcastQueue interface {
	EnqueueBroadcast(ctx context.Context, broadcastID int64) error
}

// Exporter renders per-bot data as spreadsheet files.
type Exporter interface {
	Audience(ctx context.Context, bot *domain.Bot) (*bytes.Buffer, string, error)
}

// ActionLimiter throttles sensitive owner actions such as bot creation.
type ActionLimiter interface {
	CheckAction(ctx context.Context, userID int64, action ratelimit.Action) error
}
