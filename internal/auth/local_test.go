package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/keepsakeapp/keepsake/internal/auth"
	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/keepsakeapp/keepsake/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setupTestProvider(t *testing.T) (*auth.LocalProvider, *store.Local) {
	t.Helper()

	log := logger.New(logger.Config{Level: slog.LevelDebug})
	local, err := store.NewLocal(t.TempDir(), log.Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		local.Close() //nolint:errcheck
	})

	tokens, err := auth.NewTokenService(testKey, time.Hour)
	require.NoError(t, err)

	return auth.NewLocalProvider(local, tokens, log.Logger), local
}

func TestRegister(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	session, err := provider.Register(ctx, "Ada@Example.com", "correct horse battery")
	require.NoError(t, err)

	assert.Contains(t, session.User.ID, "user-")
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.False(t, session.User.Verified)
	assert.NotEmpty(t, session.Token)
	assert.NotNil(t, provider.CurrentSession())
}

func TestRegister_Validation(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	_, err := provider.Register(ctx, "not-an-email", "correct horse battery")
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = provider.Register(ctx, "ada@example.com", "short")
	assert.ErrorIs(t, err, errors.ErrWeakPassword)
}

func TestRegister_EmailInUse(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	_, err := provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = provider.Register(ctx, "ADA@example.com", "another password")
	assert.ErrorIs(t, err, errors.ErrEmailInUse)
}

func TestLogin(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	registered, err := provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NoError(t, provider.Logout(ctx))

	session, err := provider.Login(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	_, err := provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = provider.Login(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)

	_, err = provider.Login(ctx, "nobody@example.com", "correct horse battery")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestLogin_Throttled(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	_, err := provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	// Burn through the burst allowance with bad passwords.
	for range 5 {
		_, err := provider.Login(ctx, "ada@example.com", "wrong password")
		assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
	}

	_, err = provider.Login(ctx, "ada@example.com", "correct horse battery")
	assert.ErrorIs(t, err, errors.ErrTooManyRequests)
}

func TestLogout(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	_, err := provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, provider.Logout(ctx))
	assert.Nil(t, provider.CurrentSession())

	// Logging out while signed out is a no-op.
	assert.NoError(t, provider.Logout(ctx))
}

func TestOnAuthChange(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	var states []*auth.User
	unsubscribe := provider.OnAuthChange(func(u *auth.User) {
		states = append(states, u)
	})

	// Fires immediately with the signed-out state.
	require.Len(t, states, 1)
	assert.Nil(t, states[0])

	session, err := provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, session.User.ID, states[1].ID)

	require.NoError(t, provider.Logout(ctx))
	require.Len(t, states, 3)
	assert.Nil(t, states[2])

	unsubscribe()
	_, err = provider.Login(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Len(t, states, 3)
}

func TestRestore(t *testing.T) {
	log := logger.New(logger.Config{Level: slog.LevelDebug})
	local, err := store.NewLocal(t.TempDir(), log.Logger)
	require.NoError(t, err)
	defer local.Close() //nolint:errcheck

	tokens, err := auth.NewTokenService(testKey, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	first := auth.NewLocalProvider(local, tokens, log.Logger)
	session, err := first.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	// A fresh provider on the same database resumes the session.
	second := auth.NewLocalProvider(local, tokens, log.Logger)
	require.NoError(t, second.Restore(ctx))

	restored := second.CurrentSession()
	require.NotNil(t, restored)
	assert.Equal(t, session.User.ID, restored.User.ID)
}

func TestResendVerification(t *testing.T) {
	provider, _ := setupTestProvider(t)
	ctx := context.Background()

	err := provider.ResendVerification(ctx)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	_, err = provider.Register(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NoError(t, provider.ResendVerification(ctx))
}

func TestSignInWithGoogle(t *testing.T) {
	provider, _ := setupTestProvider(t)

	_, err := provider.SignInWithGoogle(context.Background())
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}
