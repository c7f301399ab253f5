package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
	tg "github.com/m3rciful/loginbot/core/telegram"
)

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates from one user.
	Interval time.Duration
	// Exclude lists update kinds ("message", "callback") that bypass the limiter.
	Exclude   map[string]struct{}
	OnLimited tg.HandlerFunc
	Metrics   *metrics.Metrics
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu       sync.Mutex
	interval time.Duration
	entries  map[int64]*limiterEntry
}

// allow reports whether userID may proceed. Idle limiters are dropped after a while.
func (s *limiterStore) allow(userID int64, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idle := 100 * s.interval
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > idle {
			delete(s.entries, id)
		}
	}
	e, ok := s.entries[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(s.interval), 1)}
		s.entries[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// RateLimit drops updates that arrive faster than opts.Interval for the same user.
func RateLimit(opts RateLimitOptions) tg.Middleware {
	store := &limiterStore{interval: opts.Interval, entries: make(map[int64]*limiterEntry)}
	return func(next tg.HandlerFunc) tg.HandlerFunc {
		return func(ctx context.Context, ev *tg.Event) error {
			if opts.Interval <= 0 || ev.Sender == nil {
				return next(ctx, ev)
			}
			kind := ev.UpdateKind()
			if _, skip := opts.Exclude[kind]; skip {
				return next(ctx, ev)
			}
			if store.allow(ev.Sender.ID, time.Now()) {
				return next(ctx, ev)
			}
			logger.Warn(ctx, logger.CompTG, "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			opts.Metrics.ObserveRateLimited(kind)
			if opts.OnLimited != nil {
				return opts.OnLimited(ctx, ev)
			}
			return nil
		}
	}
}
