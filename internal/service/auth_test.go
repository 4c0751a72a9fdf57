package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	sess, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)
	assert.Equal(t, "a@x.com", sess.User.Email)
	assert.Equal(t, models.RoleUser, sess.User.Role)

	claims, err := env.Issuer.ParseAccess(sess.Access.Value)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	rec, err := env.Repo.FindRefresh(ctx, sess.Refresh.Value)
	require.NoError(t, err)
	assert.False(t, rec.IsRevoked)
	assert.WithinDuration(t, env.Clock.Now().Add(7*24*time.Hour), rec.ExpiresAt, time.Second)

	assert.Equal(t, []string{events.UserLoggedIn}, env.Events.Types())
}

// Unknown email and wrong password must be indistinguishable.
func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	_, errUnknown := env.Auth.Login(ctx, "nobody@x.com", "Secret123")
	_, errWrong := env.Auth.Login(ctx, "a@x.com", "nope")

	assert.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Empty(t, env.Events.Types())
}

// A refresh spends its token; the old one is revoked and cannot be reused.
func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	first, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	second, err := env.Auth.Refresh(ctx, first.Refresh.Value)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh.Value, second.Refresh.Value)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = env.Auth.Refresh(ctx, first.Refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	third, err := env.Auth.Refresh(ctx, second.Refresh.Value)
	require.NoError(t, err)
	assert.NotEmpty(t, third.Access.Value)

	old, err := env.Repo.FindRefresh(ctx, first.Refresh.Value)
	require.NoError(t, err)
	assert.True(t, old.IsRevoked)
}

// Logout revokes the session and repeating it is harmless.
func TestLogout_ThenRefreshFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	sess, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, env.Auth.LogOut(ctx, sess.Refresh.Value))
	_, err = env.Auth.Refresh(ctx, sess.Refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// idempotent
	require.NoError(t, env.Auth.LogOut(ctx, sess.Refresh.Value))
	require.NoError(t, env.Auth.LogOut(ctx, "never-issued"))
	require.NoError(t, env.Auth.LogOut(ctx, ""))

	assert.Equal(t, []string{events.UserLoggedIn, events.UserLoggedOut}, env.Events.Types())
}

func TestRefresh_Expired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	sess, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	env.Clock.Advance(7*24*time.Hour + time.Minute)
	_, err = env.Auth.Refresh(ctx, sess.Refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_PersistedExpiryWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	tok, err := env.Issuer.IssueRefresh(u.ID)
	require.NoError(t, err)
	// signature is still valid but the stored record already lapsed
	require.NoError(t, env.Repo.CreateRefresh(ctx, u.ID, tok.Value, env.Clock.Now().Add(-time.Minute)))

	_, err = env.Auth.Refresh(ctx, tok.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_Garbage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := env.Auth.Refresh(ctx, raw)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, raw)
	}

	// well-signed but never persisted
	tok, err := env.Issuer.IssueRefresh(u.ID)
	require.NoError(t, err)
	_, err = env.Auth.Refresh(ctx, tok.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// access token presented as refresh
	access, err := env.Issuer.IssueAccess(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	_, err = env.Auth.Refresh(ctx, access.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	sess, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)
	require.NoError(t, env.Repo.DeleteUser(ctx, u.ID))

	_, err = env.Auth.Refresh(ctx, sess.Refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_ConcurrentSameToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)

	sess, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	const n = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*Session
		losers  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := env.Auth.Refresh(ctx, sess.Refresh.Value)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, got)
				return
			}
			if errors.Is(err, domain.ErrTokenInvalid) {
				losers++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, losers)

	_, err = env.Auth.Refresh(ctx, winners[0].Refresh.Value)
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "a@x.com", "Secret123", models.RoleAdmin)

	got, err := env.Auth.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = env.Auth.Me(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
