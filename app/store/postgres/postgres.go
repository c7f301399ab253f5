// Package postgres implements store.IdentityStore on Postgres via sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
	"github.com/m3rciful/loginbot/core/errs"
	"github.com/m3rciful/loginbot/core/logger"
)

const uniqueViolation = "23505"

const userColumns = `id, telegram_id, phone_number, first_name, last_name, username, language_code,
	is_verified, temp_token, temp_token_expires_at, created_at, updated_at`

const sessionColumns = `id, session_token, telegram_id, status, user_id, approved_at, created_at, updated_at`

// Store is a Postgres IdentityStore.
type Store struct {
	db *sqlx.DB
}

var _ store.IdentityStore = (*Store)(nil)

// New wraps db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return nil, mapErr(ctx, "users.by_telegram_id", err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu model.NewUser) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, `
		INSERT INTO users (telegram_id, phone_number, first_name, last_name, username, language_code,
			is_verified, temp_token, temp_token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING `+userColumns,
		nu.TelegramID, nu.PhoneNumber, nu.FirstName, nu.LastName, nu.Username, nu.LanguageCode,
		nu.TempToken, nu.TempTokenExpiresAt,
	)
	if err != nil {
		return nil, mapErr(ctx, "users.create", err)
	}
	return &u, nil
}

func (s *Store) UpdateTempToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET temp_token = $2, temp_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1`, userID, token, expiresAt)
	return affected(ctx, "users.update_token", res, err)
}

func (s *Store) LoginSession(ctx context.Context, token string) (*model.LoginSession, error) {
	var ls model.LoginSession
	err := s.db.GetContext(ctx, &ls, `SELECT `+sessionColumns+` FROM login_sessions WHERE session_token = $1`, token)
	if err != nil {
		return nil, mapErr(ctx, "login_sessions.get", err)
	}
	return &ls, nil
}

func (s *Store) LinkLoginSession(ctx context.Context, token string, telegramID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE login_sessions SET telegram_id = $2, updated_at = NOW()
		WHERE session_token = $1 AND status = 'pending'
		  AND (telegram_id IS NULL OR telegram_id = $2)`, token, telegramID)
	return affected(ctx, "login_sessions.link", res, err)
}

func (s *Store) DecideLoginSession(ctx context.Context, d model.Decision) error {
	var (
		res sql.Result
		err error
	)
	if d.Approve {
		res, err = s.db.ExecContext(ctx, `
			UPDATE login_sessions SET status = $3, user_id = $4, approved_at = $5, updated_at = NOW()
			WHERE session_token = $1 AND telegram_id = $2 AND status = 'pending'`,
			d.SessionToken, d.TelegramID, d.Status(), d.UserID, d.At)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE login_sessions SET status = $3, updated_at = NOW()
			WHERE session_token = $1 AND telegram_id = $2 AND status = 'pending'`,
			d.SessionToken, d.TelegramID, d.Status())
	}
	return affected(ctx, "login_sessions.decide", res, err)
}

func affected(ctx context.Context, op string, res sql.Result, err error) error {
	if err != nil {
		return mapErr(ctx, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(ctx, op, err)
	}
	if n == 0 {
		return errs.E(errs.KindNotFound, op, store.ErrNotFound)
	}
	return nil
}

func mapErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.E(errs.KindNotFound, op, store.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return errs.E(errs.KindConflict, op, store.ErrConflict)
	}
	logger.Error(ctx, logger.CompDB, "query.fail",
		slog.String("op", op),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return errs.E(errs.KindStore, op, err)
}
