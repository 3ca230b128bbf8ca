package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
	"github.com/frahmantamala/support-ticketing/internal/user"
	"github.com/golang-jwt/jwt/v5"
)

type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Service is the main auth service with dependencies
type Service struct {
	repo           Repository
	tokenGenerator TokenGenerator
	hasher         Hasher
	logger         *slog.Logger
	nowFunc        func() time.Time
}

// NewService creates a new auth service
func NewService(repo Repository, tokenGen TokenGenerator, hasher Hasher, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		hasher:         hasher,
		logger:         logger,
		nowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(secret string, accessTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: accessTTL,
		nowFunc:        time.Now,
	}
}

var errAccountDeactivated = errors.NewUnauthorizedError("Account is deactivated", errors.ErrCodeUnauthenticated)

// Authenticate validates credentials and returns an access token. Unknown
// emails and wrong passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if err := validation.ValidateStruct(dto); err != nil {
		return nil, err
	}

	creds, err := s.repo.GetCredentials(ctx, dto.Email)
	if err != nil {
		s.logger.Error("failed to load credentials", "error", err)
		return nil, errors.NewStorageError("failed to load credentials", err)
	}
	if creds == nil || !s.hasher.Compare(creds.PasswordHash, dto.Password) {
		s.logger.Warn("login failed", "email", dto.Email)
		return nil, errors.ErrInvalidCredentials
	}
	if !creds.IsActive {
		s.logger.Warn("login refused for deactivated account", "user_id", creds.UserID)
		return nil, errAccountDeactivated
	}

	actor, err := s.repo.GetActor(ctx, creds.UserID)
	if err != nil || actor == nil {
		s.logger.Error("failed to load user after login", "error", err, "user_id", creds.UserID)
		return nil, errors.NewStorageError("failed to load user", err)
	}

	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(*actor)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err, "user_id", actor.ID)
		return nil, errors.NewInternalError("failed to sign token", err)
	}

	if err := s.repo.TouchLastLogin(ctx, actor.ID, s.nowFunc()); err != nil {
		s.logger.Warn("failed to record last login", "error", err, "user_id", actor.ID)
	}

	s.logger.Info("user logged in", "user_id", actor.ID, "organization", actor.Organization)
	return &LoginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *actor,
	}, nil
}

// ResolveActor turns a bearer token into the current actor. Deactivated or
// deleted users are unauthenticated even while their token is unexpired.
func (s *Service) ResolveActor(ctx context.Context, tokenString string) (access.Actor, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return access.Actor{}, err
	}

	actor, err := s.repo.GetActor(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("failed to load actor", "error", err, "user_id", claims.UserID)
		return access.Actor{}, errors.NewStorageError("failed to load user", err)
	}
	if actor == nil || !actor.Active {
		return access.Actor{}, errors.ErrUnauthenticated
	}
	return *actor, nil
}

func (s *Service) ChangePassword(ctx context.Context, actor access.Actor, dto ChangePasswordDTO) error {
	if err := validation.ValidateStruct(dto); err != nil {
		return err
	}

	hash, err := s.repo.GetPasswordHash(ctx, actor.ID)
	if err != nil {
		s.logger.Error("failed to load password hash", "error", err, "user_id", actor.ID)
		return errors.NewStorageError("failed to load user", err)
	}
	if !s.hasher.Compare(hash, dto.CurrentPassword) {
		return errors.NewValidationFieldError("current_password", "current password is incorrect", errors.ErrCodeInvalidCredentials)
	}
	if err := user.ValidatePassword("new_password", dto.NewPassword); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return errors.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, actor.ID, newHash, s.nowFunc()); err != nil {
		s.logger.Error("failed to update password", "error", err, "user_id", actor.ID)
		return errors.NewStorageError("failed to update password", err)
	}

	s.logger.Info("password changed", "user_id", actor.ID)
	return nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(actor access.Actor) (string, time.Time, error) {
	now := j.nowFunc()
	expiresAt := now.Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID: actor.ID,
		Email:  actor.Email,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", actor.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt.UTC(), nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.nowFunc))

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID > 0 {
		return claims, nil
	}

	return nil, errors.ErrInvalidToken
}
