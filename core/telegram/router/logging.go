package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
)

func handleWithSummary(ctx context.Context, ev *tg.Event, name string, h tg.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx = logger.WithHandler(ctx, name)
	err := h(ctx, ev)
	logHandlerSummary(ctx, name, start, "", err, extras...)
	return err
}

func logHandlerSummary(ctx context.Context, name string, start time.Time, statusOverride string, err error, extras ...slog.Attr) {
	ctx = logger.WithHandler(ctx, name)
	msgs, kb := tg.CountersFrom(ctx).Snapshot()

	status := statusOverride
	if status == "" {
		status = logger.Status(err)
	}
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component(logger.CompTG), slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimSuffix(name, "_")
	if name == "" {
		return "unknown"
	}
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
