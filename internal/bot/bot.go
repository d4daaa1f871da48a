package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/bot/handlers"
	"github.com/bekzod-dev/botforge/internal/bot/keyboard"
	errors "github.com/bekzod-dev/botforge/internal/errors"
	"github.com/bekzod-dev/botforge/internal/i18n"
	"github.com/bekzod-dev/botforge/internal/idempotency"
	"github.com/bekzod-dev/botforge/internal/middleware"
	"github.com/bekzod-dev/botforge/internal/repository"
	"github.com/bekzod-dev/botforge/internal/state"
	"github.com/bekzod-dev/botforge/pkg/config"
)

const defaultPollTimeout = 10 * time.Second

// Deps bundles the collaborators the builder bot routes updates to.
type Deps struct {
	Users      repository.UserRepository
	Bots       repository.BotRepository
	BotUsers   repository.BotUserRepository
	Settings   repository.SettingsRepository
	Channels   repository.ChannelRepository
	Contests   repository.ContestRepository
	Referrals  repository.ReferralRepository
	Broadcasts repository.BroadcastRepository
	Runner     handlers.BotRunner
	Queue      handlers.BroadcastQueue
	Exporter   handlers.Exporter
	Translator i18n.Translator
}

// Bot is the builder bot owners talk to: it registers child bots and exposes
// their management surface.
type Bot struct {
	telebot            *telebot.Bot
	log                *slog.Logger
	cfg                config.Config
	fsm                state.StateMachine
	deps               Deps
	rateLimitMw        *middleware.RateLimitMiddleware
	router             *Router
	dispatcher         *Dispatcher
	keyboard           *keyboard.Builder
	errHandler         *errors.Handler
	idempotencyManager idempotency.Manager
}

// New builds the builder bot configured according to the application settings.
func New(
	cfg config.Config,
	log *slog.Logger,
	fsm state.StateMachine,
	idempotencyManager idempotency.Manager,
	rateLimitMw *middleware.RateLimitMiddleware,
	deps Deps,
) (*Bot, error) {
	pollTimeout := defaultPollTimeout
	if cfg.Bot.PollTimeout != "" {
		parsed, err := time.ParseDuration(cfg.Bot.PollTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse poll timeout: %w", err)
		}
		pollTimeout = parsed
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Bot.Token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	kb := keyboard.NewBuilder(deps.Translator, log)
	dispatcher := NewDispatcher(fsm, log)
	router := NewRouter(dispatcher, log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:            tb,
		log:                log,
		cfg:                cfg,
		fsm:                fsm,
		deps:               deps,
		rateLimitMw:        rateLimitMw,
		router:             router,
		dispatcher:         dispatcher,
		keyboard:           kb,
		errHandler:         errHandler,
		idempotencyManager: idempotencyManager,
	}

	b.setupRouter()

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping builder bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	if b.router == nil {
		return
	}

	tr := b.deps.Translator
	log := b.log

	b.router.Use(RecoveryMiddleware(log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.idempotencyManager, log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(log))
	b.router.Use(AuthMiddleware(b.deps.Users, log))
	b.router.Use(LastActiveMiddleware(b.deps.Users))
	b.router.Use(middleware.Metrics)

	myBots := handlers.NewMyBotsHandler(b.deps.Bots, b.keyboard, tr, log)
	newBot := handlers.NewBotCommand(b.fsm, b.deps.Bots, b.rateLimitMw, b.cfg.Limits.MaxBotsPerUser, tr, log)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(b.fsm, tr, log))
	b.router.RegisterCommand(CommandNewBot, newBot)
	b.router.RegisterCommand(CommandMyBots, myBots)
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.fsm, tr, log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(tr))
	b.router.RegisterCommand(CommandAdmin, handlers.NewAdminHandler(b.cfg.Admin, b.deps.Bots, b.deps.Users, b.deps.Contests, b.deps.Runner, tr, log))

	b.router.SetDefault(handlers.NewMenuHandler(tr, myBots, newBot))

	broadcastDeps := handlers.BroadcastDeps{
		FSM:        b.fsm,
		Bots:       b.deps.Bots,
		BotUsers:   b.deps.BotUsers,
		Settings:   b.deps.Settings,
		Broadcasts: b.deps.Broadcasts,
		Queue:      b.deps.Queue,
		Limiter:    b.rateLimitMw,
		Keyboard:   b.keyboard,
		Translator: tr,
		Log:        log,
	}

	statsDeps := handlers.StatsDeps{
		Bots:       b.deps.Bots,
		BotUsers:   b.deps.BotUsers,
		Referrals:  b.deps.Referrals,
		Contests:   b.deps.Contests,
		Broadcasts: b.deps.Broadcasts,
	}

	b.router.RegisterCallback(CallbackBotsList, handlers.CallbackHandler(myBots))
	b.router.RegisterCallback(CallbackBotManage, handlers.NewManageHandler(b.deps.Bots, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotStats, handlers.NewStatsHandler(statsDeps, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotToggle, handlers.NewToggleHandler(b.deps.Bots, b.deps.Runner, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotChannels, handlers.NewChannelsHandler(b.deps.Bots, b.deps.Channels, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackChannelAdd, handlers.NewChannelAddHandler(b.fsm, b.deps.Bots, tr, log))
	b.router.RegisterCallback(CallbackChannelRemove, handlers.NewChannelRemoveHandler(b.deps.Bots, b.deps.Channels, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotContests, handlers.NewContestsHandler(b.deps.Bots, b.deps.Contests, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackContestNew, handlers.NewContestNewHandler(b.fsm, b.deps.Bots, b.rateLimitMw, tr, log))
	b.router.RegisterCallback(CallbackContestEnd, handlers.NewContestEndHandler(b.deps.Bots, b.deps.Contests, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackContestWin, handlers.NewContestWinnersHandler(b.deps.Bots, b.deps.Contests, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotExport, handlers.NewExportHandler(b.deps.Bots, b.deps.Exporter, tr, log))
	b.router.RegisterCallback(CallbackBotBroadcast, handlers.NewBroadcastStartHandler(broadcastDeps))
	b.router.RegisterCallback(CallbackBotRestart, handlers.NewRestartHandler(b.deps.Bots, b.deps.Runner, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotDeleteAsk, handlers.NewDeleteAskHandler(b.cfg.Admin, b.deps.Bots, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotDeleteYes, handlers.NewDeleteHandler(b.cfg.Admin, b.deps.Bots, b.deps.Runner, tr, log))
	b.router.RegisterCallback(CallbackBroadcastSend, handlers.NewBroadcastConfirmHandler(broadcastDeps))
	b.router.RegisterCallback(CallbackBroadcastStop, handlers.NewBroadcastCancelHandler(broadcastDeps))
	b.router.RegisterCallback(CallbackBotSettings, handlers.NewSettingsHandler(b.deps.Bots, b.deps.Settings, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackSettingToggle, handlers.NewSettingToggleHandler(b.deps.Bots, b.deps.Settings, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackSettingEdit, handlers.NewSettingEditHandler(b.fsm, b.deps.Bots, tr, log))
	b.router.RegisterCallback(CallbackBotAdmins, handlers.NewAdminsHandler(b.deps.Bots, b.deps.Settings, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackAdminAdd, handlers.NewAdminAddHandler(b.fsm, b.deps.Bots, tr, log))
	b.router.RegisterCallback(CallbackAdminRemove, handlers.NewAdminRemoveHandler(b.deps.Bots, b.deps.Settings, b.keyboard, tr, log))
	b.router.RegisterCallback(CallbackBotRename, handlers.NewRenameHandler(b.fsm, b.deps.Bots, tr, log))

	b.dispatcher.RegisterStateHandler(state.StateAwaitingToken, handlers.NewTokenInputHandler(b.fsm, b.deps.Bots, b.deps.Runner, tr, log))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingName, handlers.NewNameInputHandler(b.fsm, b.deps.Bots, b.deps.Runner, tr, log))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingBroadcast, handlers.NewBroadcastInputHandler(broadcastDeps))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingChannel, handlers.NewChannelInputHandler(b.fsm, b.deps.Bots, b.deps.Channels, tr, log))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingContest, handlers.NewContestInputHandler(b.fsm, b.deps.Bots, b.deps.Contests, tr, log))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingSetting, handlers.NewSettingInputHandler(b.fsm, b.deps.Bots, b.deps.Settings, tr, log))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingAdmin, handlers.NewAdminInputHandler(b.fsm, b.deps.Bots, b.deps.Settings, tr, log))
	b.dispatcher.RegisterStateHandler(state.StateAwaitingRename, handlers.NewRenameInputHandler(b.fsm, b.deps.Bots, tr, log))
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnPhoto, b.router.Route)
	b.telebot.Handle(telebot.OnVideo, b.router.Route)
}
