package flows

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/callbacks"
	"github.com/m3rciful/loginbot/core/telegram/keyboard"
	"github.com/m3rciful/loginbot/core/telegram/sender"
)

// link ties the login session to the sender and asks them to decide.
func (f *Flows) link(ctx context.Context, ev *tg.Event, wl WebLogin) error {
	attrs := []slog.Attr{
		slog.String("client_id", logger.SanitizeLimit(wl.ClientID, 64)),
		slog.Int64("ts", wl.Timestamp),
	}
	approve, errA := callbacks.Encode(PrefixApprove, wl.SessionToken)
	reject, errR := callbacks.Encode(PrefixReject, wl.SessionToken)
	if err := errors.Join(errA, errR); err != nil {
		logger.Warn(ctx, logger.CompWebLogin, "weblogin.invalid", append(attrs, slog.String("err", err.Error()))...)
		f.send(ctx, ev.ChatID, msgInvalidLogin)
		return nil
	}

	u, err := f.store.UserByTelegramID(ctx, ev.SenderID())
	if errors.Is(err, store.ErrNotFound) {
		logger.Info(ctx, logger.CompWebLogin, "weblogin.unregistered", attrs...)
		f.send(ctx, ev.ChatID, msgNotRegistered, sender.WithMarkup(keyboard.ContactRequest(btnShareContact)))
		return nil
	}
	if err != nil {
		return f.fail(ctx, logger.CompWebLogin, "weblogin.lookup_failed", ev.ChatID, err, msgGenericError)
	}

	if err := f.store.LinkLoginSession(ctx, wl.SessionToken, ev.SenderID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn(ctx, logger.CompWebLogin, "weblogin.link_miss", attrs...)
		} else {
			logger.Error(ctx, logger.CompWebLogin, "weblogin.link_failed",
				append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))...)
		}
	}

	markup := keyboard.InlineRow(
		keyboard.InlineBtn{Text: btnApprove, Data: approve},
		keyboard.InlineBtn{Text: btnReject, Data: reject},
	)
	f.send(ctx, ev.ChatID, loginPrompt(u.FirstName, f.appName, f.baseURL), sender.WithMarkup(markup))
	logger.Info(ctx, logger.CompWebLogin, "weblogin.prompt", attrs...)
	return nil
}

// Approve handles the approve button.
func (f *Flows) Approve(ctx context.Context, ev *tg.Event) error {
	return f.decide(ctx, ev, true)
}

// Reject handles the reject button.
func (f *Flows) Reject(ctx context.Context, ev *tg.Event) error {
	return f.decide(ctx, ev, false)
}

// decide records the answer and rewrites the prompt message in place.
func (f *Flows) decide(ctx context.Context, ev *tg.Event, approve bool) error {
	sessionToken := ev.Data
	if sessionToken == "" {
		f.send(ctx, ev.ChatID, msgInvalidLogin)
		return nil
	}

	u, err := f.store.UserByTelegramID(ctx, ev.SenderID())
	if errors.Is(err, store.ErrNotFound) {
		f.send(ctx, ev.ChatID, msgUserNotFound)
		return nil
	}
	if err != nil {
		return f.fail(ctx, logger.CompWebLogin, "weblogin.lookup_failed", ev.ChatID, err, msgDecisionError)
	}

	at := f.now()
	d := model.Decision{SessionToken: sessionToken, TelegramID: ev.SenderID(), Approve: approve}
	if approve {
		d.UserID = u.ID
		d.At = at
	}
	err = f.store.DecideLoginSession(ctx, d)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn(ctx, logger.CompWebLogin, "weblogin.decision_miss", slog.String("decision", string(d.Status())))
		f.send(ctx, ev.ChatID, msgLoginInactive)
		return nil
	}
	if err != nil {
		return f.fail(ctx, logger.CompWebLogin, "weblogin.decision_failed", ev.ChatID, err, msgDecisionError)
	}

	text := rejectedText(at.In(f.loc))
	if approve {
		text = approvedText(f.baseURL, at.In(f.loc))
	}
	// Edit failures are logged by the messenger; the decision stays recorded.
	_ = f.msg.Edit(ctx, ev.ChatID, ev.MessageID, text)
	logger.Info(ctx, logger.CompWebLogin, "weblogin.decided", slog.String("decision", string(d.Status())))
	return nil
}
