package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrEmailTaken     = errors.New("email already taken")
	ErrTokenNotActive = errors.New("refresh token revoked, expired or unknown")
)

type GormRepo struct {
	DB  *gorm.DB
	Now func() time.Time
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db, Now: time.Now}
}

func (r *GormRepo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// emailTaken maps a unique-index violation on users.email to ErrEmailTaken.
// It needs the connection opened with TranslateError.
func emailTaken(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}
