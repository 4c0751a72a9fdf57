package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/todo_backend/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "repo.FindUserByEmail"

	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	const op = "repo.FindUserByID"

	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return &user, nil
}

// CreateUser inserts u unless the email is already registered.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	const op = "repo.CreateUser"

	res := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, emailTaken(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	return nil
}

func (r *GormRepo) UpdateUserPassword(ctx context.Context, id uint, passwordHash string) error {
	const op = "repo.UpdateUserPassword"

	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// UpdateUserProfile writes email and display name. A nil name clears it.
func (r *GormRepo) UpdateUserProfile(ctx context.Context, id uint, email string, name *string) (*models.User, error) {
	const op = "repo.UpdateUserProfile"

	var user models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return notFound(err)
		}
		user.Email = email
		user.Name = name
		user.UpdatedAt = r.now()
		return emailTaken(tx.Model(&user).Select("email", "name", "updated_at").Updates(&user).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	const op = "repo.ListUsers"

	var (
		users []models.User
		total int64
	)
	db := r.DB.WithContext(ctx).Model(&models.User{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Order("id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return users, total, nil
}

// SearchUsers is a substring match on email and name, used when no search
// index is configured.
func (r *GormRepo) SearchUsers(ctx context.Context, query string, offset, limit int) ([]models.User, int64, error) {
	const op = "repo.SearchUsers"

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var (
		users []models.User
		total int64
	)
	db := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) LIKE ? OR LOWER(COALESCE(name, '')) LIKE ?", pattern, pattern)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Order("id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return users, total, nil
}

// FindUsersByIDs returns the users in the order of ids, skipping ids that no
// longer exist.
func (r *GormRepo) FindUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	const op = "repo.FindUsersByIDs"

	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.User
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byID := make(map[uint]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// DeleteUser removes the user and every refresh token it owns in one
// transaction.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	const op = "repo.DeleteUser"

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReplaceWithAdmin stores admin under admin.Email in one transaction. An
// existing admin with that email is kept and copied into admin; a regular
// user is deleted along with its refresh tokens and replacedID is its id.
func (r *GormRepo) ReplaceWithAdmin(ctx context.Context, admin *models.User) (replacedID uint, created bool, err error) {
	const op = "repo.ReplaceWithAdmin"

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", admin.Email).First(&existing).Error
		switch {
		case err == nil && existing.IsAdmin():
			*admin = existing
			return nil
		case err == nil:
			if err := tx.Where("user_id = ?", existing.ID).Delete(&models.RefreshToken{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id = ?", existing.ID).Delete(&models.User{}).Error; err != nil {
				return err
			}
			replacedID = existing.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := tx.Create(admin).Error; err != nil {
			return emailTaken(err)
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return replacedID, created, nil
}
