package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/db"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/repo"
	"github.com/Skotchmaster/todo_backend/internal/tokens"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []events.UserEvent
}

func (r *recorder) Publish(_ context.Context, ev events.UserEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	Repo   *repo.GormRepo
	Hasher *hash.Hasher
	Issuer *tokens.Issuer
	Clock  *clock
	Events *recorder
	Auth   *AuthService
	Pw     *PasswordService
	Users  *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.SQLitePrefix+":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}
	r := repo.New(gdb)
	r.Now = clk.Now

	hasher, err := hash.New(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := tokens.NewIssuer(tokens.Config{
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)
	rec := &recorder{}

	return &testEnv{
		Repo:   r,
		Hasher: hasher,
		Issuer: issuer,
		Clock:  clk,
		Events: rec,
		Auth:   &AuthService{Users: r, Tokens: r, Hasher: hasher, Issuer: issuer, Events: rec, Now: clk.Now},
		Pw:     &PasswordService{Users: r, Tokens: r, Hasher: hasher, Events: rec},
		Users:  &UserService{Repo: r, Hasher: hasher, Events: rec},
	}
}

func (env *testEnv) seedUser(t *testing.T, email, password, role string) *models.User {
	t.Helper()
	h, err := env.Hasher.Hash(password)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: h, Role: role}
	require.NoError(t, env.Repo.CreateUser(context.Background(), u))
	return u
}
