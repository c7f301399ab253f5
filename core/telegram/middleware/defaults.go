// Package middleware holds the update middlewares wrapped around every handler.
package middleware

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/loginbot/core/config"
	"github.com/m3rciful/loginbot/core/metrics"
	tg "github.com/m3rciful/loginbot/core/telegram"
)

// Defaults builds the shared chain: recover, rate limit (when configured), logging, metrics.
func Defaults(cfg *coreconfig.Config, m *metrics.Metrics, onLimited tg.HandlerFunc) []tg.Middleware {
	mws := []tg.Middleware{Recover}
	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(kind)] = struct{}{}
		}
		mws = append(mws, RateLimit(RateLimitOptions{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:   ex,
			OnLimited: onLimited,
			Metrics:   m,
		}))
	}
	return append(mws, Logging(), Metrics(m))
}
