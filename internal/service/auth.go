package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/repo"
	"github.com/Skotchmaster/todo_backend/internal/tokens"
)

// Session is the result of a successful login or refresh.
type Session struct {
	User    domain.UserSummary
	Access  tokens.Token
	Refresh tokens.Token
}

type AuthService struct {
	Users  UserRepo
	Tokens RefreshRepo
	Hasher *hash.Hasher
	Issuer *tokens.Issuer
	Events events.Publisher
	Now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// dummy is compared against when the email is unknown so both failure
// paths cost one bcrypt verification.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func summaryOf(u *models.User) domain.UserSummary {
	return domain.UserSummary{ID: u.ID, Email: u.Email, Role: u.Role, Name: u.Name}
}

func (s *AuthService) issuePair(u *models.User) (tokens.Token, tokens.Token, error) {
	access, err := s.Issuer.IssueAccess(u.ID, u.Email, u.Role)
	if err != nil {
		return tokens.Token{}, tokens.Token{}, err
	}
	refresh, err := s.Issuer.IssueRefresh(u.ID)
	if err != nil {
		return tokens.Token{}, tokens.Token{}, err
	}
	return access, refresh, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Hasher.Verify(password, s.dummy())
			l.Warn("login_failed", "reason", "invalid credentials")
			return nil, domain.ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, fmt.Errorf("auth.Login: %w", err)
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		l.Warn("login_failed", "reason", "invalid credentials", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		l.Error("login_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("auth.Login: %w", err)
	}
	if err := s.Tokens.CreateRefresh(ctx, user.ID, refresh.Value, refresh.ExpiresAt); err != nil {
		l.Error("login_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	l.Info("login_ok", "user_id", user.ID, "role", user.Role)
	publish(ctx, s.Events, events.UserEvent{Type: events.UserLoggedIn, UserID: user.ID, Email: user.Email, Role: user.Role})

	return &Session{User: summaryOf(user), Access: access, Refresh: refresh}, nil
}

// Refresh spends rawRefresh and returns a new pair. Every way the presented
// token can be unusable surfaces as domain.ErrTokenInvalid.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Issuer.ParseRefresh(rawRefresh)
	if err != nil {
		l.Warn("refresh_rejected", "reason", "bad token", "error", err)
		return nil, domain.ErrTokenInvalid
	}

	rec, err := s.Tokens.FindRefresh(ctx, rawRefresh)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_rejected", "reason", "unknown token", "user_id", claims.UserID)
			return nil, domain.ErrTokenInvalid
		}
		l.Error("refresh_failed", "error", err)
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}
	if rec.IsRevoked || !rec.ExpiresAt.After(s.now()) || rec.UserID != claims.UserID {
		l.Warn("refresh_rejected", "reason", "revoked or expired", "user_id", rec.UserID, "revoked", rec.IsRevoked)
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.Users.FindUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_rejected", "reason", "user gone", "user_id", rec.UserID)
			return nil, domain.ErrTokenInvalid
		}
		l.Error("refresh_failed", "error", err)
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	access, refresh, err := s.issuePair(user)
	if err != nil {
		l.Error("refresh_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	if err := s.Tokens.RotateRefresh(ctx, rawRefresh, user.ID, refresh.Value, refresh.ExpiresAt); err != nil {
		if errors.Is(err, repo.ErrTokenNotActive) {
			l.Warn("refresh_rejected", "reason", "lost rotation race", "user_id", user.ID)
			return nil, domain.ErrTokenInvalid
		}
		l.Error("refresh_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	l.Info("refresh_rotated", "user_id", user.ID)
	publish(ctx, s.Events, events.UserEvent{Type: events.SessionRotated, UserID: user.ID})

	return &Session{User: summaryOf(user), Access: access, Refresh: refresh}, nil
}

// LogOut revokes rawRefresh if it is an active session. Absent, unknown or
// already revoked tokens are not an error.
func (s *AuthService) LogOut(ctx context.Context, rawRefresh string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	if rawRefresh == "" {
		return nil
	}

	revoked, err := s.Tokens.RevokeRefresh(ctx, rawRefresh)
	if err != nil {
		l.Error("logout_revoke_failed", "error", err)
		return fmt.Errorf("auth.LogOut: %w", err)
	}
	if !revoked {
		l.Info("logout_noop")
		return nil
	}

	l.Info("logout_ok")
	if claims, err := s.Issuer.ParseRefresh(rawRefresh); err == nil {
		publish(ctx, s.Events, events.UserEvent{Type: events.UserLoggedOut, UserID: claims.UserID})
	}
	return nil
}

// Me loads the profile behind an authenticated identity.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.Users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("auth.Me: %w", err)
	}
	return user, nil
}
