package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	docs      map[uint]string
	searchIDs []uint
	searchErr error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[uint]string{}} }

func (f *fakeIndex) Index(_ context.Context, u *models.User) error {
	f.docs[u.ID] = u.Email
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id uint) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, _, _ int) (int64, []uint, error) {
	if f.searchErr != nil {
		return 0, nil, f.searchErr
	}
	return int64(len(f.searchIDs)), f.searchIDs, nil
}

func TestUserService_CreateWithInitialPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	idx := newFakeIndex()
	env.Users.Index = idx

	name := "Bob"
	u, pw, err := env.Users.Create(ctx, "bob@x.com", &name, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Len(t, pw, 12)
	assert.NotEqual(t, pw, u.PasswordHash)
	assert.Equal(t, "bob@x.com", idx.docs[u.ID])

	sess, err := env.Auth.Login(ctx, "bob@x.com", pw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.User.ID)

	_, _, err = env.Users.Create(ctx, "bob@x.com", nil, "")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, _, err = env.Users.Create(ctx, "eve@x.com", nil, "root")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Contains(t, env.Events.Types(), events.UserCreated)
}

func TestUserService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)
	env.seedUser(t, "b@x.com", "Secret123", models.RoleUser)

	name := "Alice"
	u, err := env.Users.UpdateProfile(ctx, a.ID, "alice@x.com", &name)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", u.Email)

	// keeping one's own email is not a conflict
	_, err = env.Users.UpdateProfile(ctx, a.ID, "alice@x.com", nil)
	assert.NoError(t, err)

	_, err = env.Users.UpdateProfile(ctx, a.ID, "b@x.com", nil)
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = env.Users.UpdateProfile(ctx, 999, "z@x.com", nil)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	idx := newFakeIndex()
	env.Users.Index = idx

	admin := env.seedUser(t, "root@x.com", "Secret123", models.RoleAdmin)
	u := env.seedUser(t, "a@x.com", "Secret123", models.RoleUser)
	idx.docs[u.ID] = u.Email

	sess, err := env.Auth.Login(ctx, "a@x.com", "Secret123")
	require.NoError(t, err)

	assert.ErrorIs(t, env.Users.Delete(ctx, admin.ID), domain.ErrCannotDeleteAdmin)
	require.NoError(t, env.Users.Delete(ctx, u.ID))
	assert.NotContains(t, idx.docs, u.ID)

	_, err = env.Repo.FindRefresh(ctx, sess.Refresh.Value)
	assert.Error(t, err)
	_, err = env.Auth.Refresh(ctx, sess.Refresh.Value)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	assert.ErrorIs(t, env.Users.Delete(ctx, u.ID), domain.ErrUserNotFound)
}

func TestUserService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.seedUser(t, "anna@x.com", "Secret123", models.RoleUser)
	b := env.seedUser(t, "bob@y.com", "Secret123", models.RoleUser)

	page, err := env.Users.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	page, err = env.Users.List(ctx, "anna", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, a.ID, page.Users[0].ID)

	idx := newFakeIndex()
	idx.searchIDs = []uint{b.ID, a.ID}
	env.Users.Index = idx
	page, err = env.Users.List(ctx, "whatever", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, b.ID, page.Users[0].ID)

	idx.searchErr = errors.New("cluster down")
	page, err = env.Users.List(ctx, "bob", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, b.ID, page.Users[0].ID)
}

func TestUserService_ProvisionedAdminCanLogIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.Users.Provision(ctx, "root@x.com", "Admin123", nil, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	sess, err := env.Auth.Login(ctx, "root@x.com", "Admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sess.User.Role)
	assert.WithinDuration(t, env.Clock.Now().Add(15*time.Minute), sess.Access.ExpiresAt, time.Second)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ph, err := env.Hasher.Hash("Admin123")
	require.NoError(t, err)

	_, _, err = env.Users.EnsureAdmin(ctx, "root@x.com", "not-a-hash")
	assert.ErrorIs(t, err, domain.ErrValidation)

	plain := env.seedUser(t, "root@x.com", "user1234", models.RoleUser)
	u, created, err := env.Users.EnsureAdmin(ctx, "root@x.com", ph)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, u.IsAdmin())
	assert.NotEqual(t, plain.ID, u.ID)
	require.NotNil(t, u.Name)
	assert.Equal(t, "Administrator", *u.Name)

	again, created, err := env.Users.EnsureAdmin(ctx, "root@x.com", ph)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	_, err = env.Auth.Login(ctx, "root@x.com", "Admin123")
	require.NoError(t, err)
}

func TestUserService_ProvisionOverlongPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Users.Provision(context.Background(), "root@x.com", strings.Repeat("Admin123", 10), nil, models.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
