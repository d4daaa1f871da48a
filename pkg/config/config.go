// Package config provides configuration loading and validation utilities.
package config

import "fmt"

// Config holds runtime configuration for the bot platform.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// BotConfig configures the builder bot itself.
type BotConfig struct {
	Token       string `mapstructure:"token" validate:"required"`
	PollTimeout string `mapstructure:"poll_timeout"`
}

// ServerConfig configures the HTTP sidecar serving /metrics and /healthz.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig configures the postgres connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslmode,
	)
}

// RedisConfig configures the redis connection used for sessions, state,
// rate limits and the job queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LoggerConfig configures structured logging output.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// RateLimitRule pairs a request budget with its window.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitActions holds the per-action budgets.
type RateLimitActions struct {
	Message         RateLimitRule `mapstructure:"message"`
	ButtonClick     RateLimitRule `mapstructure:"button_click"`
	BotCreation     RateLimitRule `mapstructure:"bot_creation"`
	ContestCreation RateLimitRule `mapstructure:"contest_creation"`
	Broadcast       RateLimitRule `mapstructure:"broadcast"`
}

// RateLimitConfig configures the sliding-window limiter.
type RateLimitConfig struct {
	Enabled   bool             `mapstructure:"enabled"`
	Whitelist []int64          `mapstructure:"whitelist"`
	PerUser   RateLimitRule    `mapstructure:"per_user"`
	Actions   RateLimitActions `mapstructure:"actions"`
}

// LimitsConfig holds platform quotas.
type LimitsConfig struct {
	MaxBotsPerUser int `mapstructure:"max_bots_per_user"`
}

// BroadcastConfig tunes mass-send pacing.
type BroadcastConfig struct {
	PauseEvery    int    `mapstructure:"pause_every"`
	PauseDuration string `mapstructure:"pause_duration"`
}

// BackupConfig configures scheduled database dumps.
type BackupConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	Cron     string `mapstructure:"cron"`
	MaxAge   string `mapstructure:"max_age"`
	MaxCount int    `mapstructure:"max_count"`
}

// AdminConfig names the platform operators.
type AdminConfig struct {
	SuperAdminID int64   `mapstructure:"super_admin_id"`
	AdminIDs     []int64 `mapstructure:"admin_ids"`
}

// IsAdmin reports whether the user is a platform operator.
func (c AdminConfig) IsAdmin(userID int64) bool {
	if userID == c.SuperAdminID && userID != 0 {
		return true
	}
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
