package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/models"
)

type UserRepo interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUserPassword(ctx context.Context, id uint, passwordHash string) error
	UpdateUserProfile(ctx context.Context, id uint, email string, name *string) (*models.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	SearchUsers(ctx context.Context, query string, offset, limit int) ([]models.User, int64, error)
	FindUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	DeleteUser(ctx context.Context, id uint) error
	ReplaceWithAdmin(ctx context.Context, admin *models.User) (replacedID uint, created bool, err error)
}

type RefreshRepo interface {
	CreateRefresh(ctx context.Context, userID uint, rawToken string, expiresAt time.Time) error
	FindRefresh(ctx context.Context, rawToken string) (*models.RefreshToken, error)
	RevokeRefresh(ctx context.Context, rawToken string) (bool, error)
	RotateRefresh(ctx context.Context, oldRaw string, userID uint, newRaw string, newExpiresAt time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
}

// publish sends ev without letting a broker outage fail the caller.
func publish(ctx context.Context, pub events.Publisher, ev events.UserEvent) {
	if pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
