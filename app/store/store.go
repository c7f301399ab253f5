// Package store defines persistence for users and web login sessions.
package store

import (
	"context"
	"time"

	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/core/errs"
)

var (
	// ErrNotFound is returned when no row matches the lookup or update scope.
	ErrNotFound = errs.New(errs.KindNotFound, "store", "not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errs.New(errs.KindConflict, "store", "already exists")
)

// IdentityStore persists User and LoginSession records.
type IdentityStore interface {
	// UserByTelegramID returns ErrNotFound when the user is not registered.
	UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	// CreateUser inserts a verified user and returns ErrConflict on a duplicate telegram id.
	CreateUser(ctx context.Context, u model.NewUser) (*model.User, error)
	// UpdateTempToken replaces the ephemeral access token of user id.
	UpdateTempToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// LoginSession returns the session with token or ErrNotFound.
	LoginSession(ctx context.Context, token string) (*model.LoginSession, error)
	// LinkLoginSession attaches telegramID to a pending session that is unlinked or
	// already linked to the same user. ErrNotFound means no session matched.
	LinkLoginSession(ctx context.Context, token string, telegramID int64) error
	// DecideLoginSession moves a pending session owned by d.TelegramID to approved or
	// rejected. ErrNotFound means the token, owner or pending status did not match.
	DecideLoginSession(ctx context.Context, d model.Decision) error
}
