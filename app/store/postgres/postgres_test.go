package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/loginbot/app/model"
	"github.com/m3rciful/loginbot/app/store"
)

// setupTestDB recreates the schema from the migrations directory.
// It skips tests if DATABASE_URL is not set.
func setupTestDB(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL tests")
	}
	db, err := sqlx.Connect("postgres", databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`DROP TABLE IF EXISTS auth_identities, login_sessions, users, schema_migrations CASCADE`)
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join("..", "..", "..", "migrations", "*.up.sql"))
	require.NoError(t, err)
	sort.Strings(files)
	for _, f := range files {
		ddl, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = db.Exec(string(ddl))
		require.NoError(t, err, f)
	}
	return New(db)
}

func addSession(t *testing.T, s *Store, token string) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO login_sessions (session_token) VALUES ($1)`, token)
	require.NoError(t, err)
}

func TestUserLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.UserByTelegramID(ctx, 100)
	assert.ErrorIs(t, err, store.ErrNotFound)

	exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	u, err := s.CreateUser(ctx, model.NewUser{
		TelegramID: 100, PhoneNumber: "+998901234567", FirstName: "Jamol", LastName: "Karimov",
		TempToken: "tok-1", TempTokenExpiresAt: exp,
	})
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	_, err = s.CreateUser(ctx, model.NewUser{TelegramID: 100, PhoneNumber: "x", FirstName: "a", LastName: "b"})
	assert.ErrorIs(t, err, store.ErrConflict)

	require.NoError(t, s.UpdateTempToken(ctx, u.ID, "tok-2", exp))
	got, err := s.UserByTelegramID(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, got.TempToken)
	assert.Equal(t, "tok-2", *got.TempToken)

	assert.ErrorIs(t, s.UpdateTempToken(ctx, 9999, "x", exp), store.ErrNotFound)
}

func TestLoginSessionDecision(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, model.NewUser{TelegramID: 7, PhoneNumber: "+1", FirstName: "a", LastName: "b"})
	require.NoError(t, err)
	addSession(t, s, "abc")

	require.NoError(t, s.LinkLoginSession(ctx, "abc", 7))
	assert.ErrorIs(t, s.LinkLoginSession(ctx, "abc", 8), store.ErrNotFound)

	err = s.DecideLoginSession(ctx, model.Decision{SessionToken: "abc", TelegramID: 8, Approve: true, UserID: u.ID, At: time.Now()})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DecideLoginSession(ctx, model.Decision{SessionToken: "abc", TelegramID: 7, Approve: true, UserID: u.ID, At: time.Now()}))
	ls, err := s.LoginSession(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.LoginApproved, ls.Status)
	require.NotNil(t, ls.UserID)
	assert.Equal(t, u.ID, *ls.UserID)
	assert.NotNil(t, ls.ApprovedAt)

	err = s.DecideLoginSession(ctx, model.Decision{SessionToken: "abc", TelegramID: 7})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
