package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	keyLogger ctxKey = iota
	keyRID
	keyRequestID
	keyUpdate
	keyHandler
)

// UpdateMeta identifies the Telegram update being processed.
type UpdateMeta struct {
	UpdateID int
	UserID   int64
	ChatID   int64
}

// WithLogger stores log in ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// WithRID attaches the update correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RIDFrom returns the correlation id from ctx.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, keyRID)
}

// WithRequestID attaches the HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestIDFrom returns the HTTP request id from ctx.
func RequestIDFrom(ctx context.Context) string {
	return stringValue(ctx, keyRequestID)
}

// WithUpdateMeta attaches update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return context.WithValue(ctx, keyUpdate, UpdateMeta{UpdateID: updateID, UserID: userID, ChatID: chatID})
}

func updateMeta(ctx context.Context) UpdateMeta {
	if ctx == nil {
		return UpdateMeta{}
	}
	m, _ := ctx.Value(keyUpdate).(UpdateMeta)
	return m
}

// UserIDFrom returns the Telegram user id from ctx.
func UserIDFrom(ctx context.Context) int64 { return updateMeta(ctx).UserID }

// ChatIDFrom returns the chat id from ctx.
func ChatIDFrom(ctx context.Context) int64 { return updateMeta(ctx).ChatID }

// UpdateIDFrom returns the update id from ctx.
func UpdateIDFrom(ctx context.Context) int { return updateMeta(ctx).UpdateID }

// WithHandler stores the handler name for downstream records.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the handler name from ctx.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, keyHandler)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// Sanitize removes control and format runes except tab and newline.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and truncates to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) > max {
		r = r[:max]
	}
	return string(r)
}

// BuildRID formats updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return strconv.Itoa(updateID) + ":" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// CompactRID rewrites a three-part numeric RID as dot-separated base36 segments.
// Any other input is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
