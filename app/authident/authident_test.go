package authident

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestSynthesizedCredentials(t *testing.T) {
	id := Identity{TelegramID: 123456, Phone: "+998901234567"}
	assert.Equal(t, "123456@telegram.local", id.Email("telegram.local"))
	assert.Equal(t, "tg_123456_+998901234567", id.Password())
}

func TestHashPasswordRoundTrip(t *testing.T) {
	p := Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	encoded, err := HashPassword("tg_1_+1", p)
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, "m=1024,t=1,p=1", parts[3])

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	require.NoError(t, err)
	want := argon2.IDKey([]byte("tg_1_+1"), salt, 1, 1024, 1, 16)
	assert.Equal(t, base64.RawStdEncoding.EncodeToString(want), parts[5])
}

func TestNoopProvision(t *testing.T) {
	assert.NoError(t, Noop{}.Provision(context.Background(), Identity{TelegramID: 1}))
}

func TestPGStoreProvision(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL tests")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000003_create_auth_identities.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(ddl))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM auth_identities WHERE telegram_id = 424242`)
	require.NoError(t, err)

	s := NewPGStore(pool, "telegram.local")
	s.params = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	id := Identity{TelegramID: 424242, Phone: "+1", FirstName: "A"}
	require.NoError(t, s.Provision(ctx, id))
	require.NoError(t, s.Provision(ctx, id))

	var email string
	require.NoError(t, pool.QueryRow(ctx, `SELECT email FROM auth_identities WHERE telegram_id = 424242`).Scan(&email))
	assert.Equal(t, "424242@telegram.local", email)
}
