package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"           json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"size:255;not null"                  json:"-"`
	Role         string    `gorm:"size:20;not null;default:user"      json:"role"`
	Name         *string   `gorm:"size:100"                           json:"name,omitempty"`
	CreatedAt    time.Time `gorm:"not null"                           json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null"                           json:"updated_at"`

	RefreshTokens []RefreshToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// RefreshToken is one outstanding session. Token holds the SHA-256 hex
// digest of the signed JWT, never the JWT itself. IsRevoked only ever
// moves from false to true.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Token     string    `gorm:"size:64;uniqueIndex;not null"  json:"-"`
	UserID    uint      `gorm:"index;not null"                json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null"                json:"expires_at"`
	IsRevoked bool      `gorm:"not null;default:false"        json:"is_revoked"`
	CreatedAt time.Time `gorm:"not null"                      json:"created_at"`
	UpdatedAt time.Time `gorm:"not null"                      json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
