package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/loginbot/core/buildinfo"
	coreconfig "github.com/m3rciful/loginbot/core/config"
)

// Component names used across the bot.
const (
	CompApp          = "app"
	CompDB           = "db"
	CompMigrate      = "db.migrate"
	CompTG           = "tg"
	CompWire         = "tg.wire"
	CompSender       = "tg.sender"
	CompHTTP         = "http"
	CompSession      = "session"
	CompRegistration = "service.registration"
	CompWebLogin     = "service.weblogin"
	CompAuth         = "service.auth"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	sink    *asyncWriter
	files   []io.Closer
	level   slog.LevelVar
	sampler = newRatioSampler(1, 50)
	trace   bool

	// L is the process-wide logger. It discards output until Init runs.
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init configures the global structured logger. Subsequent calls are no-ops.
func Init(cfg coreconfig.LoggingConfig) error {
	var err error
	initOnce.Do(func() {
		level.Set(parseLevel(cfg.Level))
		sampler.Set(debugRatio(cfg.DebugSample))
		trace = envFlag("TRACE") || envFlag("LOG_TRACE")

		outputs, closers, openErr := openOutputs(cfg)
		if openErr != nil {
			err = openErr
			return
		}
		files = closers
		sink = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   sink,
			format:   parseFormat(cfg),
			keyOrder: parseKeyOrder(cfg.KeysOrder),
		}))
		slog.SetDefault(L)

		Info(context.Background(), CompApp, "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profile(cfg)),
		)
	})
	return err
}

// Shutdown flushes buffered output and closes file sinks.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Flush(), sink.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Component returns L scoped with the component attribute.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes one record carrying the event attribute through logg (or the context logger).
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Event logs through a component-scoped logger.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, FromContext(ctx).With("component", component), lvl, event, attrs...)
}

// Debug logs a debug-level event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug record should be written.
func ShouldSampleDebug() bool {
	return trace || sampler.Allow()
}

// TraceEnabled reports whether TRACE forces full debug output.
func TraceEnabled() bool { return trace }

func parseFormat(cfg coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch strings.ToLower(cfg.Profile) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	var order []string
	if raw != "" && raw != "default" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutputs(cfg coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	dir := strings.TrimSpace(cfg.Dir)
	name := strings.TrimSpace(cfg.BotFile)
	if dir == "" || name == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	return append(writers, f), []io.Closer{f}, nil
}

func profile(cfg coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(cfg.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

// debugRatio parses "n/d" or "d" (meaning 1/d); "0" disables sampling.
func debugRatio(raw string) (int, int) {
	num, den := parseRatio(raw)
	if strings.TrimSpace(raw) == "" {
		return 1, 50
	}
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return 1, 50
	}
	return num, den
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
