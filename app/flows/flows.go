// Package flows implements the registration and web login conversations.
package flows

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/m3rciful/loginbot/app/authident"
	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
	"github.com/m3rciful/loginbot/app/token"
	"github.com/m3rciful/loginbot/core/errs"
	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/sender"
	"github.com/m3rciful/loginbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const (
	// PrefixApprove and PrefixReject route the login prompt buttons.
	PrefixApprove = "approve_login_"
	PrefixReject  = "reject_login_"
)

// Messenger sends and edits chat messages. *sender.Messenger implements it.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, opts ...sender.Option) (*tele.Message, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, opts ...sender.Option) error
}

// Options holds the collaborators of Flows.
type Options struct {
	Store       store.IdentityStore
	Sessions    state.Store[model.ConversationSession]
	Messenger   Messenger
	Tokens      *token.Issuer
	Provisioner authident.Provisioner

	AppName string
	BaseURL string
	// Now and Location drive decision timestamps; defaults are time.Now and time.Local.
	Now      func() time.Time
	Location *time.Location
}

// Flows owns the bot's handlers.
type Flows struct {
	store    store.IdentityStore
	sessions state.Store[model.ConversationSession]
	msg      Messenger
	tokens   *token.Issuer
	provider authident.Provisioner
	appName  string
	baseURL  string
	now      func() time.Time
	loc      *time.Location
}

// New creates Flows from opts.
func New(opts Options) *Flows {
	f := &Flows{
		store:    opts.Store,
		sessions: opts.Sessions,
		msg:      opts.Messenger,
		tokens:   opts.Tokens,
		provider: opts.Provisioner,
		appName:  opts.AppName,
		baseURL:  opts.BaseURL,
		now:      opts.Now,
		loc:      opts.Location,
	}
	if f.tokens == nil {
		f.tokens = token.NewIssuer(token.DefaultTTL, nil)
	}
	if f.provider == nil {
		f.provider = authident.Noop{}
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.loc == nil {
		f.loc = time.Local
	}
	return f
}

// Register binds the handlers to reg.
func (f *Flows) Register(reg *tg.Registry) error {
	if err := reg.RegisterCommand("/start", tg.Command{
		Handler:     f.Start,
		Description: "Boshlash",
	}); err != nil {
		return err
	}
	if err := reg.RegisterCallback(tg.Callback{Prefix: PrefixApprove, Handler: f.Approve, Ack: AckApproved}); err != nil {
		return err
	}
	if err := reg.RegisterCallback(tg.Callback{Prefix: PrefixReject, Handler: f.Reject, Ack: AckRejected}); err != nil {
		return err
	}
	reg.SetContactHandler(f.Contact)
	reg.SetTextHandler(f.Text)
	return nil
}

// Start handles /start with an optional payload.
func (f *Flows) Start(ctx context.Context, ev *tg.Event) error {
	if IsWebLogin(ev.Payload) {
		wl, err := ParseWebLogin(ev.Payload)
		if err != nil {
			logger.Warn(ctx, logger.CompWebLogin, "weblogin.invalid",
				slog.String("err_kind", string(errs.KindOf(err))),
				slog.String("err", err.Error()),
			)
			f.send(ctx, ev.ChatID, msgInvalidLogin)
			return nil
		}
		return f.link(ctx, ev, wl)
	}
	return f.entry(ctx, ev)
}

// RateLimited tells a user who sends updates too quickly to wait.
func (f *Flows) RateLimited(ctx context.Context, ev *tg.Event) error {
	if ev.Kind == tg.KindCallback {
		return nil
	}
	f.send(ctx, ev.ChatID, msgSlowDown)
	return nil
}

func (f *Flows) send(ctx context.Context, chatID int64, text string, opts ...sender.Option) {
	// Delivery failures are logged by the messenger.
	_, _ = f.msg.Send(ctx, chatID, text, opts...)
}

// fail logs err for component and sends the generic error message.
func (f *Flows) fail(ctx context.Context, component, event string, chatID int64, err error, text string) error {
	logger.Error(ctx, component, event,
		slog.String("err_kind", string(errs.KindOf(err))),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	f.send(ctx, chatID, text)
	return nil
}

// deepLink appends the access token to the app URL.
func (f *Flows) deepLink(tok string) string {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return f.baseURL + "?token=" + url.QueryEscape(tok)
	}
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String()
}

func profileOf(u *tele.User) model.Profile {
	if u == nil {
		return model.Profile{}
	}
	return model.Profile{
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
	}
}
