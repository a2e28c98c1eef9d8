// Package bot wires the telegram transport: router, dispatcher, middlewares,
// and the command handlers.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/bot/handlers"
	"github.com/maks-ard/film-bot/internal/bot/keyboard"
	errors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/gate"
	"github.com/maks-ard/film-bot/internal/membership"
	"github.com/maks-ard/film-bot/internal/middleware"
	"github.com/maks-ard/film-bot/internal/notify"
	"github.com/maks-ard/film-bot/internal/repository"
	"github.com/maks-ard/film-bot/internal/state"
	"github.com/maks-ard/film-bot/internal/user"
	"github.com/maks-ard/film-bot/internal/wizard"
	"github.com/maks-ard/film-bot/pkg/config"
)

// Dependencies carries everything the transport layer needs wired in.
type Dependencies struct {
	FSM        state.StateMachine
	Films      repository.FilmRepository
	Users      *user.Service
	Wizard     *wizard.Wizard
	Notifier   *notify.Notifier
	AdminFlags gate.AdminFlagSource
	RateLimit  *middleware.RateLimitMiddleware
	Dedupe     handlers.Middleware
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot        *telebot.Bot
	log            *slog.Logger
	cfg            config.Config
	deps           Dependencies
	router         *Router
	dispatcher     *Dispatcher
	errHandler     *errors.Handler
	adminPipeline  *gate.Pipeline
	lookupPipeline *gate.Pipeline
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Dependencies) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	router := NewRouter(dispatcher, log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	// the membership checker talks to telegram through the freshly built bot
	members := membership.NewChecker(tb, cfg.Bot.MembershipTimeout, log)

	adminPipeline := gate.NewPipeline(log, gate.NewAdminGate(deps.AdminFlags, log))
	lookupPipeline := gate.NewPipeline(log,
		gate.NewCodeGate(),
		gate.NewSubscriptionGate(cfg.Bot.Channels, members, deps.AdminFlags, keyboard.Channels(cfg.Bot.Channels), log),
	)

	b := &Bot{
		telebot:        tb,
		log:            log,
		cfg:            cfg,
		deps:           deps,
		router:         router,
		dispatcher:     dispatcher,
		errHandler:     errHandler,
		adminPipeline:  adminPipeline,
		lookupPipeline: lookupPipeline,
	}

	b.setupRouter()

	if deps.RateLimit != nil {
		b.telebot.Use(deps.RateLimit.Handle)
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
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as
// health checks and the background deliveries.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	if b.router == nil {
		return
	}

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	if b.deps.Dedupe != nil {
		b.router.Use(b.deps.Dedupe)
	}
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(AuditMirrorMiddleware(b.deps.Notifier, b.cfg.Bot.AuditChatID))
	b.router.Use(middleware.Metrics)
	b.router.Use(SessionGuardMiddleware(b.deps.FSM, b.log))

	lookupHandler := handlers.NewLookupHandler(b.deps.Films, b.lookupPipeline, b.errHandler, b.log)
	b.router.SetDefault(lookupHandler)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(b.deps.Users, b.deps.Notifier, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(b.deps.AdminFlags, b.log))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.deps.FSM, b.log))

	b.router.RegisterCommand(CommandAdd, b.adminGated(
		handlers.NewAddHandler(b.deps.FSM, b.deps.Wizard, b.log), lookupHandler))
	b.router.RegisterCommand(CommandDelete, b.adminGated(
		handlers.NewDeleteHandler(b.deps.Films, b.errHandler, b.log), lookupHandler))
	b.router.RegisterCommand(CommandAll, handlers.NewAllHandler(b.deps.Films, b.errHandler, b.log))

	b.router.RegisterCallback(keyboard.CallbackWizardCancel, handlers.NewCancelCallback(b.deps.FSM, b.log))

	wizardStep := handlers.NewWizardStepHandler(b.deps.FSM, b.deps.Wizard, b.errHandler, b.log)
	for _, s := range []state.State{
		state.StateAddCode,
		state.StateAddTitle,
		state.StateDescriptionChoice,
		state.StateAddDescription,
		state.StateSourceURLChoice,
		state.StateAddSourceURL,
		state.StateLinksChoice,
		state.StateAddLinks,
	} {
		b.dispatcher.RegisterStateHandler(s, wizardStep)
	}
}

// adminGated wraps an admin command. On a silent denial the update is handed
// to the fallback handler, so for non-admins the command behaves like any
// other text.
func (b *Bot) adminGated(h handlers.Handler, fallback handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		verdict, _ := b.adminPipeline.Evaluate(context.Background(), sender, c.Text())
		if verdict.Allowed {
			return h(c)
		}

		if verdict.Message != "" {
			if verdict.Markup != nil {
				return c.Send(verdict.Message, verdict.Markup)
			}
			return c.Send(verdict.Message)
		}

		if fallback != nil {
			return fallback(c)
		}

		return nil
	}
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
