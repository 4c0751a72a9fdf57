package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Changing the password swaps which password logs in.
func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "OldPass123", models.RoleUser)

	require.NoError(t, env.Pw.ChangePassword(ctx, u.ID, "OldPass123", "NewPass456"))

	_, err := env.Auth.Login(ctx, "a@x.com", "OldPass123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.Auth.Login(ctx, "a@x.com", "NewPass456")
	assert.NoError(t, err)

	assert.Contains(t, env.Events.Types(), events.PasswordChanged)
}

func TestChangePassword_WrongCurrentAndMissingUserMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "OldPass123", models.RoleUser)

	errWrong := env.Pw.ChangePassword(ctx, u.ID, "nope", "NewPass456")
	errMissing := env.Pw.ChangePassword(ctx, 999, "OldPass123", "NewPass456")

	assert.ErrorIs(t, errWrong, domain.ErrInvalidCurrentPassword)
	assert.ErrorIs(t, errMissing, domain.ErrInvalidCurrentPassword)
	assert.Equal(t, errWrong.Error(), errMissing.Error())

	_, err := env.Auth.Login(ctx, "a@x.com", "OldPass123")
	assert.NoError(t, err)
}

func TestChangePassword_KeepsSessionsByDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "OldPass123", models.RoleUser)

	sess, err := env.Auth.Login(ctx, "a@x.com", "OldPass123")
	require.NoError(t, err)
	require.NoError(t, env.Pw.ChangePassword(ctx, u.ID, "OldPass123", "NewPass456"))

	_, err = env.Auth.Refresh(ctx, sess.Refresh.Value)
	assert.NoError(t, err)
}

func TestChangePassword_RevokesSessionsWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "OldPass123", models.RoleUser)
	env.Pw.RevokeSessions = true

	sess, err := env.Auth.Login(ctx, "a@x.com", "OldPass123")
	require.NoError(t, err)
	require.NoError(t, env.Pw.ChangePassword(ctx, u.ID, "OldPass123", "NewPass456"))

	_, err = env.Auth.Refresh(ctx, sess.Refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestChangePassword_EmptyNew(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "a@x.com", "OldPass123", models.RoleUser)

	err := env.Pw.ChangePassword(context.Background(), u.ID, "OldPass123", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChangePassword_TooLongForBcrypt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "OldPass123", models.RoleUser)

	err := env.Pw.ChangePassword(ctx, u.ID, "OldPass123", strings.Repeat("a1", 40))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.Auth.Login(ctx, "a@x.com", "OldPass123")
	assert.NoError(t, err)
}
