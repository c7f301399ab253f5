package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/loginbot/core/config"
	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
	tg "github.com/m3rciful/loginbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

func event(kind tg.Kind, userID int64) *tg.Event {
	return &tg.Event{Kind: kind, UpdateID: 1, Sender: &tele.User{ID: userID}}
}

func TestRecoverReturnsError(t *testing.T) {
	h := Recover(func(context.Context, *tg.Event) error { panic("boom") })
	err := h(context.Background(), event(tg.KindText, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRateLimitPerUser(t *testing.T) {
	calls := 0
	limited := 0
	m := metrics.New()
	h := RateLimit(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
		Metrics:  m,
		OnLimited: func(context.Context, *tg.Event) error {
			limited++
			return nil
		},
	})(func(context.Context, *tg.Event) error {
		calls++
		return nil
	})
	ctx := context.Background()

	require.NoError(t, h(ctx, event(tg.KindText, 1)))
	require.NoError(t, h(ctx, event(tg.KindText, 1)))
	require.NoError(t, h(ctx, event(tg.KindText, 2)))
	require.NoError(t, h(ctx, event(tg.KindCallback, 1)))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, limited)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("message")))
}

func TestMetricsUsesHandlerName(t *testing.T) {
	m := metrics.New()
	h := Metrics(m)(func(context.Context, *tg.Event) error { return nil })

	ctx := logger.WithHandler(context.Background(), "start")
	require.NoError(t, h(ctx, event(tg.KindCommand, 1)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues("command", "start", "ok")))
}

func TestDefaultsChain(t *testing.T) {
	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 1000, ExcludeUpdates: []string{"callback"}}}
	assert.Len(t, Defaults(cfg, nil, nil), 4)
	assert.Len(t, Defaults(&coreconfig.Config{}, nil, nil), 3)
}

func TestSeenUpdatesExpire(t *testing.T) {
	s := &seenUpdates{ttl: time.Second, seen: map[int]time.Time{}}
	now := time.Now()
	assert.True(t, s.first(10, now))
	assert.False(t, s.first(10, now.Add(500*time.Millisecond)))
	assert.True(t, s.first(10, now.Add(2*time.Second)))
}
