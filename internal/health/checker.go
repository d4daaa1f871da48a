// Package health backs the /health endpoint with liveness probes for
// the three dependencies the platform cannot run without: Postgres,
// Redis and the Telegram connection of the builder bot.
package health

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

// Checkable is one probe. A nil error means the dependency answered.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// Checker holds named probes and reports them as a single map.
type Checker struct {
	log    *slog.Logger
	probes map[string]Checkable
}

func NewChecker(log *slog.Logger) *Checker {
	return &Checker{log: log, probes: make(map[string]Checkable)}
}

// AddCheck registers a probe under name. Empty names and nil probes
// are ignored.
func (c *Checker) AddCheck(name string, probe Checkable) {
	if name != "" && probe != nil {
		c.probes[name] = probe
	}
}

// Check runs every probe and maps its name to "OK" or the failure
// text. Failures are also logged so the endpoint does not have to be
// polled to notice a dead dependency.
func (c *Checker) Check(ctx context.Context) map[string]string {
	out := make(map[string]string, len(c.probes))
	for name, probe := range c.probes {
		err := probe.HealthCheck(ctx)
		if err == nil {
			out[name] = "OK"
			continue
		}
		out[name] = err.Error()
		if c.log != nil {
			c.log.Error("health probe failed", slog.String("component", name), slog.Any("error", err))
		}
	}
	return out
}

// DBChecker pings the Postgres pool shared by all repositories.
type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker { return &DBChecker{db: db} }

func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger is the slice of the redis client the probe needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker pings the connection behind state, sessions and the
// job queue.
type RedisChecker struct {
	pinger Pinger
}

func NewRedisChecker(p Pinger) *RedisChecker { return &RedisChecker{pinger: p} }

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// TelegramChecker reports whether the builder bot finished its getMe
// handshake. Child bots are tracked by the factory, not here.
type TelegramChecker struct {
	bot *telebot.Bot
}

func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker { return &TelegramChecker{bot: bot} }

func (c *TelegramChecker) HealthCheck(context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil {
		return errors.New("builder bot not connected")
	}
	return nil
}
