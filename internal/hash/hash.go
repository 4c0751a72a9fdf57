package hash

import (
	"fmt"
	"regexp"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

var bcryptPattern = regexp.MustCompile(`^\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}$`)

// Hasher produces and checks salted bcrypt password hashes.
type Hasher struct {
	cost int
}

func New(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

func (h *Hasher) Cost() int { return h.cost }

// Hash rejects passwords bcrypt cannot take as domain.ErrValidation.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, bcrypt.ErrPasswordTooLong)
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashbytes), nil
}

// Verify reports whether password matches hash. Malformed hashes are a
// mismatch, not an error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidBcryptHash checks the $2a$/$2b$/$2y$ layout without verifying anything.
func ValidBcryptHash(s string) bool {
	return bcryptPattern.MatchString(s)
}
