package flows

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/loginbot/app/authident"
	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
	"github.com/m3rciful/loginbot/core/logger"
	tg "github.com/m3rciful/loginbot/core/telegram"
	"github.com/m3rciful/loginbot/core/telegram/keyboard"
	"github.com/m3rciful/loginbot/core/telegram/sender"
)

// entry greets a known user with a fresh deep link or asks a new one for a contact.
func (f *Flows) entry(ctx context.Context, ev *tg.Event) error {
	u, err := f.store.UserByTelegramID(ctx, ev.SenderID())
	if errors.Is(err, store.ErrNotFound) {
		f.send(ctx, ev.ChatID, welcomeNew(f.appName), sender.WithMarkup(keyboard.ContactRequest(btnShareContact)))
		logger.Info(ctx, logger.CompRegistration, "registration.prompt_contact")
		return nil
	}
	if err != nil {
		return f.fail(ctx, logger.CompRegistration, "registration.lookup_failed", ev.ChatID, err, msgGenericError)
	}

	tok, err := f.tokens.Issue()
	if err != nil {
		return f.fail(ctx, logger.CompRegistration, "registration.token_failed", ev.ChatID, err, msgGenericError)
	}
	if err := f.store.UpdateTempToken(ctx, u.ID, tok.Value, tok.ExpiresAt); err != nil {
		return f.fail(ctx, logger.CompRegistration, "registration.token_failed", ev.ChatID, err, msgGenericError)
	}
	f.send(ctx, ev.ChatID, welcomeBack(u.FirstName, f.appName),
		sender.WithMarkup(keyboard.WebAppButton(btnOpenApp, f.deepLink(tok.Value))))
	logger.Info(ctx, logger.CompRegistration, "registration.returning",
		slog.Time("token_expires_at", tok.ExpiresAt),
	)
	return nil
}

// Contact captures the phone number of a new user.
func (f *Flows) Contact(ctx context.Context, ev *tg.Event) error {
	c := ev.Contact
	if c == nil || c.UserID != ev.SenderID() {
		logger.Warn(ctx, logger.CompRegistration, "registration.foreign_contact")
		f.send(ctx, ev.ChatID, msgForeignContact)
		return nil
	}

	_, err := f.store.UserByTelegramID(ctx, ev.SenderID())
	switch {
	case err == nil:
		f.send(ctx, ev.ChatID, msgAlreadyRegistered)
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return f.fail(ctx, logger.CompRegistration, "registration.lookup_failed", ev.ChatID, err, msgGenericError)
	}

	sess := model.ConversationSession{
		Phone:   c.PhoneNumber,
		Step:    model.StepWaitingFirstName,
		Profile: profileOf(ev.Sender),
	}
	if err := f.sessions.Put(ctx, ev.SenderID(), sess); err != nil {
		return f.fail(ctx, logger.CompSession, "session.put_failed", ev.ChatID, err, msgGenericError)
	}
	f.send(ctx, ev.ChatID, phoneAccepted(c.PhoneNumber), sender.WithMarkup(keyboard.RemoveKeyboard()))
	logger.Info(ctx, logger.CompRegistration, "registration.step", slog.String("step", string(sess.Step)))
	return nil
}

// Text advances the registration conversation of the sender.
func (f *Flows) Text(ctx context.Context, ev *tg.Event) error {
	uid := ev.SenderID()
	sess, ok, err := f.sessions.Get(ctx, uid)
	if err != nil {
		return f.fail(ctx, logger.CompSession, "session.get_failed", ev.ChatID, err, msgGenericError)
	}
	if !ok {
		f.send(ctx, ev.ChatID, msgNoSession)
		return nil
	}

	input := strings.TrimSpace(ev.Text)
	switch sess.Step {
	case model.StepWaitingFirstName:
		if input == "" {
			f.send(ctx, ev.ChatID, msgAskFirstName)
			return nil
		}
		sess.FirstName = input
		sess.Step = model.StepWaitingLastName
		if err := f.sessions.Put(ctx, uid, sess); err != nil {
			f.dropSession(ctx, uid)
			return f.fail(ctx, logger.CompSession, "session.put_failed", ev.ChatID, err, msgGenericError)
		}
		f.send(ctx, ev.ChatID, askLastName(sess.FirstName))
		logger.Info(ctx, logger.CompRegistration, "registration.step", slog.String("step", string(sess.Step)))
		return nil
	case model.StepWaitingLastName:
		if input == "" {
			f.send(ctx, ev.ChatID, msgAskLastName)
			return nil
		}
		sess.LastName = input
		return f.finish(ctx, ev, sess)
	default:
		f.dropSession(ctx, uid)
		f.send(ctx, ev.ChatID, msgNoSession)
		return nil
	}
}

// finish creates the user. The conversation is removed whatever the outcome.
func (f *Flows) finish(ctx context.Context, ev *tg.Event, sess model.ConversationSession) error {
	uid := ev.SenderID()
	defer f.dropSession(ctx, uid)

	tok, err := f.tokens.Issue()
	if err != nil {
		return f.fail(ctx, logger.CompRegistration, "registration.token_failed", ev.ChatID, err, msgGenericError)
	}
	_, err = f.store.CreateUser(ctx, model.NewUser{
		TelegramID:         uid,
		PhoneNumber:        sess.Phone,
		FirstName:          sess.FirstName,
		LastName:           sess.LastName,
		Username:           sess.Profile.Username,
		LanguageCode:       sess.Profile.LanguageCode,
		TempToken:          tok.Value,
		TempTokenExpiresAt: tok.ExpiresAt,
	})
	if errors.Is(err, store.ErrConflict) {
		logger.Warn(ctx, logger.CompRegistration, "registration.duplicate")
		f.send(ctx, ev.ChatID, msgAlreadyRegistered)
		return nil
	}
	if err != nil {
		return f.fail(ctx, logger.CompRegistration, "registration.create_failed", ev.ChatID, err, msgGenericError)
	}

	if err := f.provider.Provision(ctx, authident.Identity{
		TelegramID: uid,
		Phone:      sess.Phone,
		FirstName:  sess.FirstName,
		LastName:   sess.LastName,
		Username:   sess.Profile.Username,
	}); err != nil {
		logger.Warn(ctx, logger.CompAuth, "provision.failed", slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}

	f.send(ctx, ev.ChatID, registered(sess.FirstName, sess.LastName, sess.Phone, f.appName),
		sender.WithMarkup(keyboard.WebAppButton(btnOpenAppNew, f.deepLink(tok.Value))))
	logger.Info(ctx, logger.CompRegistration, "registration.complete")
	return nil
}

func (f *Flows) dropSession(ctx context.Context, userID int64) {
	if err := f.sessions.Delete(ctx, userID); err != nil {
		logger.Warn(ctx, logger.CompSession, "session.delete_failed", slog.String("err", err.Error()))
	}
}
