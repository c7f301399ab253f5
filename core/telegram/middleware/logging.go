package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
)

// seenUpdates remembers recently logged update ids so Telegram redeliveries log once.
type seenUpdates struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[int]time.Time
}

func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.seen {
		if now.Sub(ts) > s.ttl {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = now
	return true
}

// Logging writes a sampled update.received debug record per update.
func Logging() tg.Middleware {
	recent := &seenUpdates{ttl: 10 * time.Second, seen: make(map[int]time.Time)}
	return func(next tg.HandlerFunc) tg.HandlerFunc {
		return func(ctx context.Context, ev *tg.Event) error {
			if logger.ShouldSampleDebug() && recent.first(ev.UpdateID, time.Now()) {
				attrs := []slog.Attr{
					slog.String("status", "ok"),
					slog.String("kind", string(ev.Kind)),
				}
				if u := ev.Sender; u != nil {
					if u.Username != "" {
						attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
					}
					if u.LanguageCode != "" {
						attrs = append(attrs, slog.String("lang", u.LanguageCode))
					}
				}
				switch ev.Kind {
				case tg.KindCommand:
					attrs = append(attrs, slog.String("op", ev.Command))
				case tg.KindCallback:
					attrs = append(attrs, slog.Int("payload_len", len(ev.Data)))
				case tg.KindText:
					attrs = append(attrs, slog.Int("payload_len", len([]rune(ev.Text))))
				}
				logger.LogEvent(ctx, logger.Component(logger.CompTG), slog.LevelDebug, "update.received", attrs...)
			}
			return next(ctx, ev)
		}
	}
}
