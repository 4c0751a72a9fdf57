package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/tokens"
	"gorm.io/gorm"
)

// Refresh tokens are passed in raw and stored under tokens.Digest.

func (r *GormRepo) CreateRefresh(ctx context.Context, userID uint, rawToken string, expiresAt time.Time) error {
	const op = "repo.CreateRefresh"

	if err := createRefresh(r.DB.WithContext(ctx), userID, rawToken, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func createRefresh(db *gorm.DB, userID uint, rawToken string, expiresAt time.Time) error {
	rec := models.RefreshToken{
		Token:     tokens.Digest(rawToken),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}
	return db.Create(&rec).Error
}

func (r *GormRepo) FindRefresh(ctx context.Context, rawToken string) (*models.RefreshToken, error) {
	const op = "repo.FindRefresh"

	var rec models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", tokens.Digest(rawToken)).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &rec, nil
}

// RevokeRefresh marks the token revoked. Unknown or already revoked tokens
// report false with a nil error.
func (r *GormRepo) RevokeRefresh(ctx context.Context, rawToken string) (bool, error) {
	const op = "repo.RevokeRefresh"

	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", tokens.Digest(rawToken), false).
		Update("is_revoked", true)
	if res.Error != nil {
		return false, fmt.Errorf("%s: %w", op, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RotateRefresh revokes oldRaw and stores newRaw in a single transaction.
// The revoke is conditional on the row still being active, so of several
// callers racing on the same token exactly one gets past it; the rest see
// ErrTokenNotActive and nothing is written for them.
func (r *GormRepo) RotateRefresh(ctx context.Context, oldRaw string, userID uint, newRaw string, newExpiresAt time.Time) error {
	const op = "repo.RotateRefresh"

	oldDigest := tokens.Digest(oldRaw)
	now := r.now()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.RefreshToken
		if err := tx.Where("token = ?", oldDigest).First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotActive
			}
			return err
		}
		if old.IsRevoked || !old.ExpiresAt.After(now) || old.UserID != userID {
			return ErrTokenNotActive
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND is_revoked = ?", oldDigest, false).
			Update("is_revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrTokenNotActive
		}

		return createRefresh(tx, userID, newRaw, newExpiresAt)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RevokeAllForUser revokes every active refresh token of the user and
// returns how many were affected.
func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	const op = "repo.RevokeAllForUser"

	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, res.Error)
	}
	return res.RowsAffected, nil
}
