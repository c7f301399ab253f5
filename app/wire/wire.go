// Package wire assembles the bot from configuration and infrastructure.
package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/loginbot/app/authident"
	appconfig "github.com/m3rciful/loginbot/app/config"
	"github.com/m3rciful/loginbot/app/flows"
	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
	"github.com/m3rciful/loginbot/app/store/postgres"
	"github.com/m3rciful/loginbot/app/token"
	"github.com/m3rciful/loginbot/core/bootstrap"
	coredatabase "github.com/m3rciful/loginbot/core/database"
	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/middleware"
	"github.com/m3rciful/loginbot/core/telegram/router"
	"github.com/m3rciful/loginbot/core/telegram/sender"
	"github.com/m3rciful/loginbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const sessionKeyPrefix = "loginbot:session:"

// Deps are the collaborators Assemble needs. Provisioner and Metrics may be nil.
type Deps struct {
	Store       store.IdentityStore
	API         sender.API
	Redis       *redis.Client
	Provisioner authident.Provisioner
	Metrics     *metrics.Metrics
}

// App is the assembled bot.
type App struct {
	cfg      *appconfig.Config
	bot      *tele.Bot
	metrics  *metrics.Metrics
	registry *tg.Registry
	router   *router.Router
	memory   *state.Memory[model.ConversationSession]
	closers  []func() error
}

// Assemble builds handlers, session storage and the router. It performs no network calls.
func Assemble(cfg *appconfig.Config, d Deps) (*App, error) {
	if cfg == nil || d.Store == nil || d.API == nil {
		return nil, errors.New("wire: config, store and api are required")
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	a := &App{cfg: cfg, metrics: m, registry: tg.NewRegistry()}

	var sessions state.Store[model.ConversationSession]
	switch cfg.Session.Backend {
	case appconfig.SessionBackendRedis:
		if d.Redis == nil {
			return nil, errors.New("wire: redis session backend needs a redis client")
		}
		sessions = state.NewRedis[model.ConversationSession](d.Redis, sessionKeyPrefix, cfg.Session.TTL)
	default:
		a.memory = state.NewMemory[model.ConversationSession](cfg.Session.TTL,
			state.WithSizeHook[model.ConversationSession](m.SetSessions))
		sessions = a.memory
	}

	messenger := sender.New(d.API, m)
	fl := flows.New(flows.Options{
		Store:       d.Store,
		Sessions:    sessions,
		Messenger:   messenger,
		Tokens:      token.NewIssuer(token.DefaultTTL, nil),
		Provisioner: d.Provisioner,
		AppName:     cfg.App.Name,
		BaseURL:     cfg.App.BaseURL,
	})
	if err := fl.Register(a.registry); err != nil {
		return nil, fmt.Errorf("wire: register handlers: %w", err)
	}

	a.router = router.New(a.registry, router.Options{
		Answerer:    messenger,
		Middlewares: middleware.Defaults(&cfg.Config, m, fl.RateLimited),
	})
	logger.Info(context.Background(), logger.CompWire, "wire.complete",
		slog.String("session_backend", cfg.Session.Backend),
		slog.Int("commands", len(a.registry.ListCommands(false))),
		slog.Int("callbacks", len(a.registry.ListCallbacks())),
	)
	return a, nil
}

// Build creates the Bot API client and the auth identity pool, then assembles the app.
func Build(ctx context.Context, cfg *appconfig.Config, infra *bootstrap.Result) (*App, error) {
	if infra == nil || infra.DB == nil {
		return nil, errors.New("wire: bootstrap result without database")
	}
	bot, err := tg.NewBot(&cfg.Config)
	if err != nil {
		return nil, err
	}

	var (
		prov     authident.Provisioner = authident.Noop{}
		authPool *pgxpool.Pool
	)
	if url := strings.TrimSpace(cfg.Auth.DatabaseURL); url != "" {
		authPool, err = coredatabase.OpenPool(ctx, url, 4)
		if err != nil {
			return nil, fmt.Errorf("wire: auth database: %w", err)
		}
		prov = authident.NewPGStore(authPool, cfg.Auth.EmailDomain)
	}

	a, err := Assemble(cfg, Deps{
		Store:       postgres.New(infra.DB),
		API:         bot,
		Redis:       infra.Redis,
		Provisioner: prov,
	})
	if err != nil {
		if authPool != nil {
			authPool.Close()
		}
		return nil, err
	}
	a.bot = bot
	if authPool != nil {
		a.closers = append(a.closers, func() error { authPool.Close(); return nil })
	}
	a.closers = append(a.closers, infra.Close)
	return a, nil
}

// Handler returns the update handler.
func (a *App) Handler() tg.UpdateHandler { return a.router }

// Registry returns the handler registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.bot == nil {
		return tg.RunOptions{}, errors.New("wire: app has no bot client")
	}
	return tg.RunOptions{
		Config:   &a.cfg.Config,
		Bot:      a.bot,
		Handler:  a.router,
		Registry: a.registry,
		Metrics:  a.metrics,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			if a.memory != nil {
				go a.memory.Run(ctx, a.cfg.Session.SweepInterval)
			}
			return nil
		},
	}, nil
}

// Close releases the auth pool and the bootstrap connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
