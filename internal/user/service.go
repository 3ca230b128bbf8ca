package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/pagination"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
)

const maxNameLength = 100

type Repository interface {
	// List returns users newest first.
	List(ctx context.Context, page pagination.Page) ([]*userDatamodel.User, int64, error)
	// ListActive returns active users ordered by name.
	ListActive(ctx context.Context) ([]*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, u *userDatamodel.User) error
	UpdatePassword(ctx context.Context, id int64, hash string, now time.Time) error
}

type Service struct {
	repo          Repository
	organizations *OrganizationResolver
	hasher        PasswordHasher
	logger        *slog.Logger
	nowFunc       func() time.Time
}

func NewService(repo Repository, organizations *OrganizationResolver, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		organizations: organizations,
		hasher:        hasher,
		logger:        logger,
		nowFunc:       func() time.Time { return time.Now().UTC() },
	}
}

var errUserNotFound = errors.NewNotFoundError("User not found", errors.ErrCodeNotFound)

func (s *Service) List(ctx context.Context, actor access.Actor, page pagination.Page) ([]*User, int64, error) {
	if !access.CanManageUsers(actor) {
		s.logger.Warn("user listing denied", "user_id", actor.ID)
		return nil, 0, errors.ErrAccessDenied
	}

	rows, total, err := s.repo.List(ctx, page.Normalize())
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, 0, errors.NewStorageError("failed to list users", err)
	}
	return fromDataModels(rows), total, nil
}

// ListActive backs the creator filter options. It is not gated here; callers
// decide whether the actor may filter by creator.
func (s *Service) ListActive(ctx context.Context) ([]*User, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active users", "error", err)
		return nil, errors.NewStorageError("failed to list active users", err)
	}
	return fromDataModels(rows), nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*User, error) {
	if !access.CanManageUsers(actor) {
		s.logger.Warn("user read denied", "target_user_id", id, "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}
	return s.load(ctx, id)
}

// Register creates a user. The organization comes from the email domain.
func (s *Service) Register(ctx context.Context, actor access.Actor, dto RegisterUserDTO) (*User, error) {
	if !access.CanManageUsers(actor) {
		s.logger.Warn("user registration denied", "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	dto.Name = strings.TrimSpace(dto.Name)
	dto.Email = normalizeEmail(dto.Email)
	if err := validation.ValidateStruct(dto); err != nil {
		return nil, err
	}
	if err := ValidatePassword("password", dto.Password); err != nil {
		return nil, err
	}
	org, appErr := s.organizations.Resolve(dto.Email)
	if appErr != nil {
		return nil, appErr
	}
	if err := s.ensureEmailFree(ctx, dto.Email, 0); err != nil {
		return nil, err
	}

	role := access.Role(dto.Role)
	if role == "" {
		role = access.RoleNormal
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	now := s.nowFunc()
	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: hash,
		Role:         role,
		Organization: org,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	model := ToDataModel(u)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, errors.NewStorageError("failed to create user", err)
	}

	s.logger.Info("user registered", "target_user_id", model.ID, "organization", org, "role", role, "user_id", actor.ID)
	return FromDataModel(model), nil
}

// Update applies an admin edit. Changing the email re-derives the
// organization.
func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, dto UpdateUserDTO) (*User, error) {
	if !access.CanManageUsers(actor) {
		s.logger.Warn("user update denied", "target_user_id", id, "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	name := trimPtr(dto.Name)
	var email *string
	if dto.Email != nil {
		e := normalizeEmail(*dto.Email)
		email = &e
	}

	v := validation.NewValidator()
	v.Field("name", name).NotBlank().MaxLength(maxNameLength)
	v.Field("email", email).Email()
	v.Field("role", dto.Role).NotBlank().OneOf(string(access.RoleAdmin), string(access.RoleNormal))
	v.Field("is_active", dto.IsActive).Custom(func(value interface{}) *errors.AppError {
		if active, ok := value.(*bool); ok && active != nil && !*active && id == actor.ID {
			return errors.NewValidationFieldError("is_active", "cannot deactivate your own account", errors.ErrCodeValidationFailed)
		}
		return nil
	})
	if err := v.Validate(); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		u.Name = *name
	}
	if dto.Role != nil {
		u.Role = access.Role(*dto.Role)
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if email != nil && *email != u.Email {
		org, appErr := s.organizations.Resolve(*email)
		if appErr != nil {
			return nil, appErr
		}
		if err := s.ensureEmailFree(ctx, *email, u.ID); err != nil {
			return nil, err
		}
		u.Email = *email
		u.Organization = org
	}
	u.UpdatedAt = s.nowFunc()

	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to update user", "error", err, "target_user_id", id)
		return nil, errors.NewStorageError("failed to update user", err)
	}

	s.logger.Info("user updated", "target_user_id", id, "user_id", actor.ID)
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, actor access.Actor, id int64, dto ResetPasswordDTO) error {
	if !access.CanManageUsers(actor) {
		s.logger.Warn("password reset denied", "target_user_id", id, "user_id", actor.ID)
		return errors.ErrAccessDenied
	}
	if err := validation.ValidateStruct(dto); err != nil {
		return err
	}
	if err := ValidatePassword("new_password", dto.NewPassword); err != nil {
		return err
	}

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.setPassword(ctx, id, dto.NewPassword)
}

// Deactivate soft-deletes a user. Admins cannot deactivate themselves.
func (s *Service) Deactivate(ctx context.Context, actor access.Actor, id int64) error {
	if !access.CanManageUsers(actor) {
		s.logger.Warn("user deactivation denied", "target_user_id", id, "user_id", actor.ID)
		return errors.ErrAccessDenied
	}
	if id == actor.ID {
		return errors.NewValidationFieldError("id", "cannot deactivate your own account", errors.ErrCodeValidationFailed)
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return nil
	}
	u.IsActive = false
	u.UpdatedAt = s.nowFunc()

	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "target_user_id", id)
		return errors.NewStorageError("failed to deactivate user", err)
	}

	s.logger.Info("user deactivated", "target_user_id", id, "user_id", actor.ID)
	return nil
}

func (s *Service) Profile(ctx context.Context, actor access.Actor) (*User, error) {
	return s.load(ctx, actor.ID)
}

// UpdateProfile lets users change their own name and nothing else.
func (s *Service) UpdateProfile(ctx context.Context, actor access.Actor, dto UpdateProfileDTO) (*User, error) {
	name := trimPtr(dto.Name)

	v := validation.NewValidator()
	v.Field("name", name).NotBlank().MaxLength(maxNameLength)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if name == nil {
		return u, nil
	}
	u.Name = *name
	u.UpdatedAt = s.nowFunc()

	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", actor.ID)
		return nil, errors.NewStorageError("failed to update profile", err)
	}
	return u, nil
}

func (s *Service) setPassword(ctx context.Context, id int64, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return errors.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash, s.nowFunc()); err != nil {
		s.logger.Error("failed to update password", "error", err, "target_user_id", id)
		return errors.NewStorageError("failed to update password", err)
	}
	s.logger.Info("password changed", "target_user_id", id)
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to look up user", "error", err)
		return errors.NewStorageError("failed to look up user", err)
	}
	if existing != nil && existing.ID != selfID {
		return errors.NewDuplicateName("email", email)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "target_user_id", id)
		return nil, errors.NewStorageError("failed to get user", err)
	}
	if u == nil {
		return nil, errUserNotFound
	}
	return FromDataModel(u), nil
}

func fromDataModels(rows []*userDatamodel.User) []*User {
	out := make([]*User, 0, len(rows))
	for _, u := range rows {
		out = append(out, FromDataModel(u))
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := strings.TrimSpace(*s)
	return &out
}
