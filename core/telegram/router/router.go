// Package router classifies raw Telegram updates and dispatches them to the Registry.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/callbacks"
	"github.com/m3rciful/loginbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Answerer acknowledges callback queries.
type Answerer interface {
	Answer(ctx context.Context, callbackID, text string) error
}

// Options configures a Router.
type Options struct {
	Answerer    Answerer
	Middlewares []tg.Middleware
	// Locks serializes updates per sender. A private mutex set is used when nil.
	Locks *state.KeyedMutex
}

// Router implements tg.UpdateHandler.
type Router struct {
	reg    *tg.Registry
	answer Answerer
	mws    []tg.Middleware
	locks  *state.KeyedMutex
}

// New creates a Router over reg.
func New(reg *tg.Registry, opts Options) *Router {
	if reg == nil {
		reg = tg.NewRegistry()
	}
	locks := opts.Locks
	if locks == nil {
		locks = state.NewKeyedMutex()
	}
	return &Router{reg: reg, answer: opts.Answerer, mws: opts.Middlewares, locks: locks}
}

// HandleUpdate routes one update. Updates that are neither a message from a user
// nor a callback query are ignored.
func (r *Router) HandleUpdate(ctx context.Context, upd tele.Update) error {
	ev, ok := Classify(upd)
	if !ok {
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, logger.CompTG, "update.skip", slog.Int("update_id", upd.ID))
		}
		return nil
	}

	ctx = logger.WithRID(ctx, logger.BuildRID(ev.UpdateID, ev.ChatID, ev.SenderID()))
	ctx = logger.WithUpdateMeta(ctx, ev.UpdateID, ev.SenderID(), ev.ChatID)
	ctx, _ = tg.WithCounters(ctx)

	unlock := r.locks.Lock(ev.SenderID())
	defer unlock()

	switch ev.Kind {
	case tg.KindCallback:
		return r.dispatchCallback(ctx, ev)
	case tg.KindCommand:
		key, cmd, found := r.reg.LookupCommand(ev.Command)
		if !found {
			logHandlerSummary(ctx, "unknown_command", time.Now(), "skip", nil, slog.String("op", ev.Command))
			return nil
		}
		return r.run(ctx, ev, normalizeHandlerName(key), cmd.Handler)
	case tg.KindContact:
		return r.run(ctx, ev, "contact", r.reg.ContactHandler())
	default:
		return r.run(ctx, ev, "text", r.reg.TextHandler())
	}
}

func (r *Router) run(ctx context.Context, ev *tg.Event, name string, h tg.HandlerFunc, extras ...slog.Attr) error {
	if h == nil {
		logHandlerSummary(ctx, name, time.Now(), "skip", nil, slog.String("reason", "no_handler"))
		return nil
	}
	return handleWithSummary(ctx, ev, name, tg.Chain(h, r.mws...), extras...)
}

// dispatchCallback always answers the query, whatever the handler returned.
func (r *Router) dispatchCallback(ctx context.Context, ev *tg.Event) error {
	raw := ev.Data
	route, rest, found := r.reg.LookupCallback(raw)
	if !found {
		logHandlerSummary(ctx, "callback.unknown", time.Now(), "skip", nil,
			slog.String("reason", "not_found"),
			slog.Int("payload_len", len(raw)),
		)
		r.ack(ctx, ev, r.reg.NotFoundAck())
		return nil
	}
	ev.Data = rest
	err := r.run(ctx, ev, "callback."+normalizeHandlerName(route.Prefix), route.Handler,
		slog.String("cb_key", route.Prefix))
	r.ack(ctx, ev, route.Ack)
	return err
}

func (r *Router) ack(ctx context.Context, ev *tg.Event, text string) {
	if r.answer == nil || ev.Callback == nil {
		return
	}
	_ = r.answer.Answer(ctx, ev.Callback.ID, text)
}

// Classify turns upd into an Event. It reports false for updates the bot does not handle.
func Classify(upd tele.Update) (*tg.Event, bool) {
	if cb := upd.Callback; cb != nil {
		if cb.Sender == nil {
			return nil, false
		}
		ev := &tg.Event{
			Update:   upd,
			Kind:     tg.KindCallback,
			UpdateID: upd.ID,
			ChatID:   cb.Sender.ID,
			Sender:   cb.Sender,
			Callback: cb,
			Data:     callbacks.Normalize(cb.Data),
		}
		if m := cb.Message; m != nil {
			ev.MessageID = m.ID
			if m.Chat != nil {
				ev.ChatID = m.Chat.ID
			}
		}
		return ev, true
	}

	m := upd.Message
	if m == nil || m.Sender == nil {
		return nil, false
	}
	ev := &tg.Event{
		Update:    upd,
		UpdateID:  upd.ID,
		ChatID:    m.Sender.ID,
		Sender:    m.Sender,
		MessageID: m.ID,
		Text:      m.Text,
	}
	if m.Chat != nil {
		ev.ChatID = m.Chat.ID
	}
	switch {
	case m.Contact != nil:
		ev.Kind = tg.KindContact
		ev.Contact = m.Contact
	case strings.HasPrefix(m.Text, "/"):
		ev.Kind = tg.KindCommand
		ev.Command, ev.Payload = splitCommand(m.Text)
	case m.Text != "":
		ev.Kind = tg.KindText
	default:
		return nil, false
	}
	return ev, true
}

// splitCommand parses "/cmd[@bot] payload" into "/cmd" and the trimmed payload.
func splitCommand(text string) (string, string) {
	head, payload, _ := strings.Cut(strings.TrimSpace(text), " ")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	return strings.ToLower(head), strings.TrimSpace(payload)
}
