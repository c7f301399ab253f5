// Package cmd drives a Telegram app from config loading to shutdown.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/m3rciful/loginbot/core/buildinfo"
	coreconfig "github.com/m3rciful/loginbot/core/config"
	"github.com/m3rciful/loginbot/core/logger"
	coretelegram "github.com/m3rciful/loginbot/core/telegram"
)

// DefaultConfigEnv names the variable holding the config path.
const DefaultConfigEnv = "CONFIG_PATH"

// ConfigCarrier exposes the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the run options for the bot runtime.
// Apps that also implement io.Closer are closed after the bot stops.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the app and blocks in the bot runtime
// until SIGINT or SIGTERM.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	// Bootstrap configures the structured logger; until then we only have stderr.
	log.Printf("build %s, loading config: %s", buildinfo.String(), path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	began := time.Now()
	app, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer opts.flushLogger()
	if c, ok := app.(io.Closer); ok {
		defer closeApp(c)
	}

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	withLifecycleLogs(&runOpts, began)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = DefaultConfigEnv
	}
	if p := strings.TrimSpace(os.Getenv(env)); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

func (o Options) flushLogger() {
	shutdown := o.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	if err := shutdown(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}

func closeApp(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn(context.Background(), logger.CompApp, "close", slog.String("err", err.Error()))
	}
}

// withLifecycleLogs chains the ready/shutdown records around the app hooks.
func withLifecycleLogs(ro *coretelegram.RunOptions, began time.Time) {
	onStart, onStop := ro.OnStart, ro.OnStop
	ro.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, logger.CompApp, "ready",
			slog.Duration("startup_duration", logger.RoundMS(time.Since(began))),
		)
		return nil
	}
	ro.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, logger.CompApp, "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}
