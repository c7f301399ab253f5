// Package sender delivers outbound Bot API calls and records their outcome.
package sender

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/loginbot/core/errs"
	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// API is the subset of *tele.Bot used for outbound calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Option adjusts the send options of one call.
type Option func(*tele.SendOptions)

// WithMarkup attaches a keyboard.
func WithMarkup(m *tele.ReplyMarkup) Option {
	return func(o *tele.SendOptions) { o.ReplyMarkup = m }
}

// WithParseMode overrides the default HTML parse mode.
func WithParseMode(mode tele.ParseMode) Option {
	return func(o *tele.SendOptions) { o.ParseMode = mode }
}

// PlainText disables entity parsing.
func PlainText() Option {
	return func(o *tele.SendOptions) { o.ParseMode = tele.ModeDefault }
}

// Apply builds send options with HTML parse mode as the starting point.
func Apply(opts ...Option) *tele.SendOptions {
	so := &tele.SendOptions{ParseMode: tele.ModeHTML}
	for _, opt := range opts {
		if opt != nil {
			opt(so)
		}
	}
	return so
}

// Messenger wraps API with logging, metrics and typed errors.
type Messenger struct {
	api     API
	metrics *metrics.Metrics
}

// New creates a Messenger. m may be nil.
func New(api API, m *metrics.Metrics) *Messenger {
	return &Messenger{api: api, metrics: m}
}

// Send delivers text to chatID.
func (s *Messenger) Send(ctx context.Context, chatID int64, text string, opts ...Option) (*tele.Message, error) {
	so := Apply(opts...)
	start := time.Now()
	msg, err := s.api.Send(tele.ChatID(chatID), text, so)
	s.observe(ctx, "sendMessage", chatID, start, err)
	if err != nil {
		return nil, errs.E(errs.KindTransport, "sender.send", err)
	}
	tg.CountersFrom(ctx).Add(so.ReplyMarkup != nil)
	return msg, nil
}

// Edit replaces the text of an existing message. Without a markup option the
// inline keyboard is removed.
func (s *Messenger) Edit(ctx context.Context, chatID int64, messageID int, text string, opts ...Option) error {
	so := Apply(opts...)
	target := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	start := time.Now()
	_, err := s.api.Edit(target, text, so)
	s.observe(ctx, "editMessageText", chatID, start, err)
	if err != nil {
		return errs.E(errs.KindTransport, "sender.edit", err)
	}
	tg.CountersFrom(ctx).Add(so.ReplyMarkup != nil)
	return nil
}

// Answer acknowledges a callback query with a short notice.
func (s *Messenger) Answer(ctx context.Context, callbackID, text string) error {
	start := time.Now()
	err := s.api.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	s.observe(ctx, "answerCallbackQuery", 0, start, err)
	if err != nil {
		return errs.E(errs.KindTransport, "sender.answer", err)
	}
	return nil
}

func (s *Messenger) observe(ctx context.Context, method string, chatID int64, start time.Time, err error) {
	s.metrics.ObserveOutbound(method, err)
	if err == nil {
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, logger.CompSender, "send.ok",
				slog.String("method", method),
				slog.Int64("chat_id", chatID),
				slog.Duration("took", logger.Took(start)),
			)
		}
		return
	}
	logger.Warn(ctx, logger.CompSender, "send.fail",
		slog.String("method", method),
		slog.Int64("chat_id", chatID),
		slog.String("err_kind", netutil.Classify(err)),
		slog.String("err", tg.RedactToken(logger.SanitizeLimit(err.Error(), 256))),
		slog.Duration("took", logger.Took(start)),
	)
}
