// Package authident provisions auth-service identities for registered Telegram users.
package authident

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/argon2"

	"github.com/m3rciful/loginbot/core/errs"
	"github.com/m3rciful/loginbot/core/logger"
)

// Identity describes the user an auth identity is created for.
type Identity struct {
	TelegramID int64
	Phone      string
	FirstName  string
	LastName   string
	Username   string
}

// Email returns the synthesized login email under domain.
func (i Identity) Email(domain string) string {
	return strconv.FormatInt(i.TelegramID, 10) + "@" + domain
}

// Password returns the synthesized password.
func (i Identity) Password() string {
	return "tg_" + strconv.FormatInt(i.TelegramID, 10) + "_" + i.Phone
}

// Provisioner creates an auth identity.
type Provisioner interface {
	Provision(ctx context.Context, id Identity) error
}

// Noop is used when provisioning is disabled.
type Noop struct{}

func (Noop) Provision(ctx context.Context, id Identity) error {
	logger.Debug(ctx, logger.CompAuth, "provision.skip", slog.Int64("user_id", id.TelegramID))
	return nil
}

// Argon2Params controls password hashing cost.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams are the argon2id settings used unless overridden.
var DefaultParams = Argon2Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}

// HashPassword encodes password as a PHC-style argon2id string.
func HashPassword(password string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// PGStore writes identities into the auth_identities table.
type PGStore struct {
	pool   *pgxpool.Pool
	domain string
	params Argon2Params
}

// NewPGStore creates a PGStore that issues emails under domain.
func NewPGStore(pool *pgxpool.Pool, domain string) *PGStore {
	return &PGStore{pool: pool, domain: domain, params: DefaultParams}
}

// Provision inserts the identity. An existing identity for the same Telegram id is left untouched.
func (s *PGStore) Provision(ctx context.Context, id Identity) error {
	const op = "authident.provision"
	hash, err := HashPassword(id.Password(), s.params)
	if err != nil {
		return errs.E(errs.KindStore, op, err)
	}
	meta, err := json.Marshal(map[string]any{
		"telegram_id":  id.TelegramID,
		"first_name":   id.FirstName,
		"last_name":    id.LastName,
		"phone_number": id.Phone,
		"username":     id.Username,
	})
	if err != nil {
		return errs.E(errs.KindStore, op, err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO auth_identities (email, password_hash, telegram_id, metadata)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (telegram_id) DO NOTHING`,
		id.Email(s.domain), hash, id.TelegramID, string(meta))
	if err != nil {
		return errs.E(errs.KindStore, op, err)
	}
	logger.Info(ctx, logger.CompAuth, "provision.ok",
		slog.Int64("user_id", id.TelegramID),
		slog.Bool("created", tag.RowsAffected() == 1),
	)
	return nil
}
