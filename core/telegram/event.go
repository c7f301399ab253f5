package telegram

import (
	"context"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Kind classifies an inbound update.
type Kind string

const (
	KindCommand  Kind = "command"
	KindContact  Kind = "contact"
	KindText     Kind = "text"
	KindCallback Kind = "callback"
)

// Event is a classified update handed to handlers.
type Event struct {
	Update   tele.Update
	Kind     Kind
	UpdateID int
	ChatID   int64
	Sender   *tele.User

	// Message fields.
	MessageID int
	Text      string
	Command   string
	Payload   string
	Contact   *tele.Contact

	// Callback fields. Data is the callback data with the route prefix removed.
	Callback *tele.Callback
	Data     string
}

// SenderID returns the Telegram id of the user that produced the update.
func (e *Event) SenderID() int64 {
	if e == nil || e.Sender == nil {
		return 0
	}
	return e.Sender.ID
}

// UpdateKind maps the event to the rate limit exclusion keys ("message" or "callback").
func (e *Event) UpdateKind() string {
	if e.Kind == KindCallback {
		return "callback"
	}
	return "message"
}

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies mws so that the first one is the outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// UpdateHandler consumes raw updates from the webhook endpoint or the long poller.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tele.Update) error
}

// Counters tracks outbound messages produced while handling one update.
type Counters struct {
	mu       sync.Mutex
	messages int
	keyboard bool
}

type countersKey struct{}

// WithCounters attaches fresh Counters to ctx.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	c := &Counters{}
	return context.WithValue(ctx, countersKey{}, c), c
}

// CountersFrom returns the Counters stored in ctx or nil.
func CountersFrom(ctx context.Context) *Counters {
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// Add records one delivered message. Safe on a nil receiver.
func (c *Counters) Add(withKeyboard bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages++
	c.keyboard = c.keyboard || withKeyboard
}

// Snapshot returns the message count and whether any message carried a keyboard.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages, c.keyboard
}
