package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/loginbot/core/config"
	"github.com/m3rciful/loginbot/core/httpserver"
	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Bot      *tele.Bot
	Handler  UpdateHandler
	Registry *Registry
	Metrics  *metrics.Metrics

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Registry *Registry
	Health   *httpserver.Health
}

// RunTelegram feeds updates to opts.Handler until ctx is done. In webhook mode it
// registers the public URL and serves the update endpoint; in longpoll mode it removes
// any webhook and polls. The HTTP server also exposes health and metrics and runs in
// longpoll mode whenever webhook.port is set.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Bot == nil || opts.Handler == nil {
		return errors.New("telegram: bot and handler are required")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	log := logger.Component(logger.CompTG)

	var srv *httpserver.Server
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook || cfg.Webhook.Port > 0 {
		srv = httpserver.New(httpserver.Options{
			Listen:  cfg.Webhook.Listen,
			Port:    cfg.Webhook.Port,
			Metrics: opts.Metrics,
		})
	}
	rt := Runtime{Bot: opts.Bot, Registry: reg}
	if srv != nil {
		rt.Health = srv.Health()
	}

	if err := InitBotCommands(ctx, opts.Bot, reg); err != nil {
		log.Warn("command menu not published", slog.String("event", "tg.commands"), slog.String("err", err.Error()))
	}

	var poll func(context.Context) error
	switch cfg.Telegram.RunMode {
	case coreconfig.RunModeWebhook:
		srv.Engine().POST(cfg.Webhook.Path, WebhookHandler(opts.Handler))
		hook := &tele.Webhook{
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: []string{"message", "callback_query"},
		}
		if err := opts.Bot.SetWebhook(hook); err != nil {
			return fmt.Errorf("telegram: set webhook: %s", RedactToken(err.Error()))
		}
		log.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port)),
			slog.String("public_url", cfg.Webhook.URL),
			slog.String("path", cfg.Webhook.Path),
		)
	default:
		if err := opts.Bot.RemoveWebhook(); err != nil {
			log.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", RedactToken(err.Error())),
			)
		}
		forward := func(c tele.Context) error {
			return opts.Handler.HandleUpdate(ctx, c.Update())
		}
		opts.Bot.Handle(tele.OnText, forward)
		opts.Bot.Handle(tele.OnContact, forward)
		opts.Bot.Handle(tele.OnCallback, forward)
		poll = func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				opts.Bot.Start()
				close(done)
			}()
			select {
			case <-ctx.Done():
				opts.Bot.Stop()
				<-done
			case <-done:
			}
			return nil
		}
		log.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("timeout", BuildPoller(cfg.Telegram.LongPollTimeoutSeconds).Timeout),
		)
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}
	if rt.Health != nil {
		rt.Health.SetReady(true)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 2)
	running := 0
	if srv != nil {
		running++
		go func() { errCh <- srv.Run(runCtx) }()
	}
	if poll != nil {
		running++
		go func() { errCh <- poll(runCtx) }()
	}

	var runErr error
	for i := 0; i < running; i++ {
		err := <-errCh
		if err != nil && runErr == nil {
			runErr = err
		}
		// The first component to exit stops the other one.
		cancel()
	}

	if opts.OnStop != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
