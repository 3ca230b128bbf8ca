package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/golang-jwt/jwt/v5"
)

// Credentials is what login needs to know about a user.
type Credentials struct {
	UserID       int64
	PasswordHash string
	IsActive     bool
}

// Repository reads and writes the authentication columns of users.
type Repository interface {
	// GetCredentials returns nil when no user has the email.
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	// GetActor returns nil when the user does not exist.
	GetActor(ctx context.Context, userID int64) (*access.Actor, error)
	GetPasswordHash(ctx context.Context, userID int64) (string, error)
	UpdatePassword(ctx context.Context, userID int64, hash string, now time.Time) error
	TouchLastLogin(ctx context.Context, userID int64, now time.Time) error
}

// TokenGenerator creates and validates access tokens.
type TokenGenerator interface {
	GenerateAccessToken(actor access.Actor) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents JWT token claims
type Claims struct {
	UserID int64       `json:"user_id"`
	Email  string      `json:"email"`
	Role   access.Role `json:"role"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	nowFunc        func() time.Time
}

type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      access.Actor `json:"user"`
}
