package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/backup"
	"github.com/bekzod-dev/botforge/internal/bot"
	"github.com/bekzod-dev/botforge/internal/broadcast"
	"github.com/bekzod-dev/botforge/internal/childbot"
	"github.com/bekzod-dev/botforge/internal/database"
	apperrors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/export"
	"github.com/bekzod-dev/botforge/internal/factory"
	"github.com/bekzod-dev/botforge/internal/health"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/idempotency"
	"github.com/bekzod-dev/botforge/internal/jobs"
	jobhandlers "github.com/bekzod-dev/botforge/internal/jobs/handlers"
	"github.com/bekzod-dev/botforge/internal/lifecycle"
	"github.com/bekzod-dev/botforge/internal/middleware"
	"github.com/bekzod-dev/botforge/internal/ratelimit"
	"github.com/bekzod-dev/botforge/internal/referral"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/session"
	"github.com/bekzod-dev/botforge/internal/state"
	"github.com/bekzod-dev/botforge/pkg/config"
	"github.com/bekzod-dev/botforge/pkg/graceful"
	"github.com/bekzod-dev/botforge/pkg/logger"
	"github.com/bekzod-dev/botforge/pkg/metrics"
	redispkg "github.com/bekzod-dev/botforge/pkg/redis"

	_ "github.com/lib/pq"
)

const (
	defaultLanguage = "uz"

	stateTTL         = 24 * time.Hour
	cleanupInterval  = 10 * time.Minute
	shutdownTimeout  = 15 * time.Second
	healthzTimeout   = 5 * time.Second
	sentryFlushLimit = 2 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.AppEnv}); err != nil {
			slog.Warn("sentry init failed, continuing without it", slog.Any("error", err))
			cfg.Sentry.Enabled = false
		} else {
			defer sentry.Flush(sentryFlushLimit)
		}
	}

	log := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	log.Info("starting botforge",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("log_level", cfg.Logger.Level))

	db, err := database.Open(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		return
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := database.NewMigrator(db, log).ApplyDir(ctx, "migrations"); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		return
	}

	rc, err := redispkg.New(ctx, redispkg.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		return
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			log.Error("error closing redis", slog.Any("error", cerr))
		}
	}()

	// Conversation state, sessions, idempotency and rate limits all live
	// in redis. The cleaners sweep leftovers from crashed conversations.
	stateStorage := state.NewRedisStorage(rc.Client, log)
	fsm := state.NewStateMachine(stateStorage, log, rc.Client)
	go state.NewCleaner(rc.Client, stateStorage, log, stateTTL, cleanupInterval).Run(ctx)

	sessions := session.NewStore(rc.Client, log)

	idemManager := idempotency.NewManager(idempotency.NewRedisStore(rc.Client, log), log)
	go idempotency.NewCleaner(rc.Client, log, cleanupInterval).Run(ctx)

	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(rc.Client, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	rules := ratelimit.NewRules(cfg.RateLimit)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, rules, log)
	go ratelimit.NewCleaner(rc.Client, log, cleanupInterval).Run(ctx)

	users := repository.NewUserRepository(db, log)
	bots := repository.NewBotRepository(db, log)
	botUsers := repository.NewBotUserRepository(db, log)
	settings := repository.NewSettingsRepository(db, log)
	channels := repository.NewChannelRepository(db, log)
	contests := repository.NewContestRepository(db, log)
	referrals := repository.NewReferralRepository(db, log)
	broadcasts := repository.NewBroadcastRepository(db, log)

	translations, err := i18n.Load(defaultLanguage)
	if err != nil {
		log.Error("failed to load translations", slog.Any("error", err))
		return
	}
	tr := translations.Translator(defaultLanguage)

	referralSvc := referral.NewService(referrals, users, log)
	childErrors := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	fac := factory.New(bots, childbot.Deps{
		Users:      users,
		BotUsers:   botUsers,
		Settings:   settings,
		Channels:   channels,
		Contests:   contests,
		Referrals:  referralSvc,
		Sessions:   sessions,
		Translator: tr,
		Errors:     childErrors,
		Log:        log,
	}, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queue := jobs.NewManager(redisOpt, log)

	exporter := export.NewService(botUsers, referrals, contests, log)

	builderBot, err := bot.New(*cfg, log, fsm, idemManager, rateLimitMw, bot.Deps{
		Users:      users,
		Bots:       bots,
		BotUsers:   botUsers,
		Settings:   settings,
		Channels:   channels,
		Contests:   contests,
		Referrals:  referrals,
		Broadcasts: broadcasts,
		Runner:     fac,
		Queue:      queue,
		Exporter:   exporter,
		Translator: tr,
	})
	if err != nil {
		log.Error("failed to start builder bot", slog.Any("error", err))
		return
	}

	notify := func(chatID int64, text string) error {
		_, err := builderBot.Telebot().Send(&telebot.User{ID: chatID}, text)
		return err
	}

	pauseFor, err := time.ParseDuration(cfg.Broadcast.PauseDuration)
	if err != nil {
		log.Warn("invalid broadcast pause duration, using default",
			slog.String("value", cfg.Broadcast.PauseDuration))
		pauseFor = 0
	}
	sender := broadcast.NewSender(bots, botUsers, broadcasts, fac, notify, tr, cfg.Broadcast.PauseEvery, pauseFor, log)

	backupRunner, err := backup.NewRunner(cfg.Database, cfg.Backup, log)
	if err != nil {
		log.Error("invalid backup configuration", slog.Any("error", err))
		return
	}

	worker := jobs.NewWorker(redisOpt, map[string]int{
		jobs.QueueCritical: 6,
		jobs.QueueDefault:  3,
		jobs.QueueLow:      1,
	}, log)
	worker.RegisterHandler(jobs.TaskTypeBroadcast, jobhandlers.NewBroadcastHandler(sender, log))
	worker.RegisterHandler(jobs.TaskTypeCleanupData, jobhandlers.NewCleanupHandler(sessions, log))
	worker.RegisterHandler(jobs.TaskTypeBackup, jobhandlers.NewBackupHandler(backupRunner, log))
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("job worker stopped", slog.Any("error", err))
		}
	}()

	scheduler := jobs.NewScheduler(redisOpt, cfg.Backup, log)
	if err := scheduler.RegisterTasks(); err != nil {
		log.Error("failed to register scheduled tasks", slog.Any("error", err))
		return
	}
	go scheduler.Run()

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rc.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(builderBot.Telebot()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), healthzTimeout)
		defer cancel()

		results := checker.Check(checkCtx)
		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	httpServer := graceful.NewServer(log, &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: logger.Middleware(middleware.New(log)(mux)),
	}, shutdownTimeout)
	go func() {
		if err := httpServer.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	go metrics.NewStateCollector(fsm).Run(ctx)

	if err := fac.StartAll(ctx); err != nil {
		log.Error("failed to start child bots", slog.Any("error", err))
	}
	go builderBot.Start()
	log.Info("botforge is running", slog.Int("child_bots", fac.Running()))

	config.Watch(v, log, func(next *config.Config) {
		rules.Update(next.RateLimit)
	})

	<-ctx.Done()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("builder_bot", func(context.Context) error {
		builderBot.Stop()
		return nil
	})
	shutdown.Register("child_bots", func(context.Context) error {
		fac.StopAll()
		return nil
	})
	shutdown.Register("job_worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})
	shutdown.Register("job_queue", func(context.Context) error {
		return queue.Close()
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("botforge stopped")
}
