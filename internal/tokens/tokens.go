package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalid   = errors.New("invalid token")
	ErrWrongType = errors.New("wrong token type")
	ErrNoSubject = errors.New("token has no user_id")
)

type AccessClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID uint   `json:"user_id"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Token is a signed compact JWT together with its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type Config struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Issuer struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = jwt.SigningMethodHS256.Alg()
	}
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Issuer{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
		),
	}, nil
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *Issuer) IssueAccess(userID uint, email, role string) (Token, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return i.sign(claims, exp)
}

// IssueRefresh mints a refresh token. The random jti keeps two tokens for
// the same user distinct even when issued within the same second.
func (i *Issuer) IssueRefresh(userID uint) (Token, error) {
	now := i.now()
	exp := now.Add(i.refreshTTL)
	claims := RefreshClaims{
		UserID: userID,
		Type:   TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return i.sign(claims, exp)
}

func (i *Issuer) sign(claims jwt.Claims, exp time.Time) (Token, error) {
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// ParseAccess verifies signature and expiry. Tokens without a typ claim are
// accepted as access tokens.
func (i *Issuer) ParseAccess(raw string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := i.parse(raw, &claims); err != nil {
		return nil, err
	}
	if claims.Type != "" && claims.Type != TypeAccess {
		return nil, ErrWrongType
	}
	if claims.UserID == 0 {
		return nil, ErrNoSubject
	}
	return &claims, nil
}

func (i *Issuer) ParseRefresh(raw string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := i.parse(raw, &claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrWrongType
	}
	if claims.UserID == 0 {
		return nil, ErrNoSubject
	}
	return &claims, nil
}

func (i *Issuer) parse(raw string, claims jwt.Claims) error {
	if raw == "" {
		return ErrInvalid
	}
	tkn, err := i.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tkn.Valid {
		return ErrInvalid
	}
	return nil
}

// Digest is the form a refresh token is stored and looked up under.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
