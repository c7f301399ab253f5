package middleware

import (
	"context"
	"time"

	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
	tg "github.com/m3rciful/loginbot/core/telegram"
)

// Metrics records update counts and handler latency.
func Metrics(m *metrics.Metrics) tg.Middleware {
	return func(next tg.HandlerFunc) tg.HandlerFunc {
		return func(ctx context.Context, ev *tg.Event) error {
			start := time.Now()
			err := next(ctx, ev)
			handler := logger.HandlerFrom(ctx)
			if handler == "" {
				handler = "unknown"
			}
			m.ObserveUpdate(string(ev.Kind), handler, logger.Status(err), time.Since(start).Seconds())
			return err
		}
	}
}
