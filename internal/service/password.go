package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/repo"
)

type PasswordService struct {
	Users  UserRepo
	Tokens RefreshRepo
	Hasher *hash.Hasher
	Events events.Publisher

	// RevokeSessions ends every refresh session of the user after a change.
	RevokeSessions bool
}

func (s *PasswordService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	l := logging.FromContext(ctx).With("svc", "password.change", "user_id", userID)

	user, err := s.Users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("password_change_failed", "reason", "invalid current password")
			return domain.ErrInvalidCurrentPassword
		}
		return fmt.Errorf("password.Change: %w", err)
	}
	if !s.Hasher.Verify(current, user.PasswordHash) {
		l.Warn("password_change_failed", "reason", "invalid current password")
		return domain.ErrInvalidCurrentPassword
	}
	if next == "" {
		return fmt.Errorf("%w: new password is empty", domain.ErrValidation)
	}

	newHash, err := s.Hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("password.Change: %w", err)
	}
	if err := s.Users.UpdateUserPassword(ctx, user.ID, newHash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.ErrInvalidCurrentPassword
		}
		return fmt.Errorf("password.Change: %w", err)
	}

	if s.RevokeSessions && s.Tokens != nil {
		n, err := s.Tokens.RevokeAllForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("password.Change: revoke sessions: %w", err)
		}
		l.Info("sessions_revoked", "count", n)
	}

	l.Info("password_changed")
	publish(ctx, s.Events, events.UserEvent{Type: events.PasswordChanged, UserID: user.ID, Email: user.Email})
	return nil
}
