package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables,
// validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, v, nil
}

// Watch re-reads the config file on change and hands the fresh Config to
// onChange. Invalid reloads are logged and skipped; the running config stays.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Error("config reload failed", "file", e.Name, "error", err)
			return
		}

		validate := validator.New(validator.WithRequiredStructEnabled())
		if err := validate.Struct(cfg); err != nil {
			log.Error("config reload invalid", "file", e.Name, "error", err)
			return
		}

		log.Info("config reloaded", "file", e.Name)
		onChange(&cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_user", map[string]any{"limit": 30, "window": "1m"})
	v.SetDefault("rate_limit.actions.message", map[string]any{"limit": 20, "window": "1m"})
	v.SetDefault("rate_limit.actions.button_click", map[string]any{"limit": 30, "window": "1m"})
	v.SetDefault("rate_limit.actions.bot_creation", map[string]any{"limit": 3, "window": "1h"})
	v.SetDefault("rate_limit.actions.contest_creation", map[string]any{"limit": 5, "window": "1h"})
	v.SetDefault("rate_limit.actions.broadcast", map[string]any{"limit": 2, "window": "10m"})
	v.SetDefault("limits.max_bots_per_user", 10)
	v.SetDefault("broadcast.pause_every", 30)
	v.SetDefault("broadcast.pause_duration", "1s")
	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("backup.cron", "0 3 * * *")
	v.SetDefault("backup.max_age", "168h")
	v.SetDefault("backup.max_count", 14)
	v.SetDefault("bot.poll_timeout", "10s")
}
