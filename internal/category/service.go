package category

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

type RepositoryAPI interface {
	GetAll(ctx context.Context, includeInactive bool) ([]*categoryDatamodel.Category, error)
	GetByID(ctx context.Context, id int64) (*categoryDatamodel.Category, error)
	GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error)
	Create(ctx context.Context, category *categoryDatamodel.Category) error
	Update(ctx context.Context, category *categoryDatamodel.Category) error
	// CountUnclosedTickets counts tickets in the category whose status is not Closed.
	CountUnclosedTickets(ctx context.Context, id int64) (int64, error)
}

type Service struct {
	repo    RepositoryAPI
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

var errCategoryNotFound = errors.NewNotFoundError("Category not found", errors.ErrCodeNotFound)

// List returns active categories ordered by name. Only admins may include
// inactive ones.
func (s *Service) List(ctx context.Context, actor access.Actor, includeInactive bool) ([]*Category, error) {
	if includeInactive && !access.CanViewInactiveCategories(actor) {
		s.logger.Warn("inactive category listing denied", "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	dataCategories, err := s.repo.GetAll(ctx, includeInactive)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, errors.NewStorageError("failed to get categories", err)
	}

	categories := make([]*Category, 0, len(dataCategories))
	for _, c := range dataCategories {
		categories = append(categories, FromDataModel(c))
	}
	return categories, nil
}

// Get reads one category. Inactive categories read as not found for
// actors who cannot list them.
func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*Category, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive && !access.CanViewInactiveCategories(actor) {
		return nil, errCategoryNotFound
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, actor access.Actor, dto CreateCategoryDTO) (*Category, error) {
	if !access.CanManageCategories(actor) {
		s.logger.Warn("category create denied", "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	dto.Name = validation.SanitizeText(dto.Name)
	dto.Description = validation.SanitizeText(dto.Description)
	if err := validation.ValidateStruct(dto); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, dto.Name, 0); err != nil {
		return nil, err
	}

	c := NewCategory(dto.Name, dto.Description, s.nowFunc())
	model := ToDataModel(c)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, errors.NewStorageError("failed to create category", err)
	}

	s.logger.Info("category created", "category_id", model.ID, "name", model.Name, "user_id", actor.ID)
	return FromDataModel(model), nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id int64, dto UpdateCategoryDTO) (*Category, error) {
	if !access.CanManageCategories(actor) {
		s.logger.Warn("category update denied", "category_id", id, "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	name := validation.SanitizeTextPtr(dto.Name)
	description := validation.SanitizeTextPtr(dto.Description)

	v := validation.NewValidator()
	v.Field("name", name).NotBlank().MaxLength(maxNameLength)
	v.Field("description", description).MaxLength(maxDescriptionLength)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil && *name != c.Name {
		if err := s.ensureNameFree(ctx, *name, c.ID); err != nil {
			return nil, err
		}
		c.Name = *name
	}
	if description != nil {
		c.Description = *description
	}
	if dto.IsActive != nil && *dto.IsActive != c.IsActive {
		if err := s.applyActive(ctx, c, *dto.IsActive); err != nil {
			return nil, err
		}
	}
	c.UpdatedAt = s.nowFunc()

	if err := s.repo.Update(ctx, ToDataModel(c)); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", id)
		return nil, errors.NewStorageError("failed to update category", err)
	}

	s.logger.Info("category updated", "category_id", id, "user_id", actor.ID)
	return c, nil
}

// SetActive activates or deactivates a category. A category that still owns
// tickets other than Closed ones cannot be deactivated.
func (s *Service) SetActive(ctx context.Context, actor access.Actor, id int64, active bool) (*Category, error) {
	if !access.CanManageCategories(actor) {
		s.logger.Warn("category activation change denied", "category_id", id, "user_id", actor.ID)
		return nil, errors.ErrAccessDenied
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsActive == active {
		return c, nil
	}
	if err := s.applyActive(ctx, c, active); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, ToDataModel(c)); err != nil {
		s.logger.Error("failed to update category", "error", err, "category_id", id)
		return nil, errors.NewStorageError("failed to update category", err)
	}

	s.logger.Info("category activation changed", "category_id", id, "is_active", active, "user_id", actor.ID)
	return c, nil
}

// EnsureDefaults creates any of the default categories that are missing.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, dto := range DefaultCategories {
		existing, err := s.repo.GetByName(ctx, dto.Name)
		if err != nil {
			return created, errors.NewStorageError("failed to look up category", err)
		}
		if existing != nil {
			continue
		}
		if err := s.repo.Create(ctx, ToDataModel(NewCategory(dto.Name, dto.Description, s.nowFunc()))); err != nil {
			return created, errors.NewStorageError("failed to create category", err)
		}
		created++
	}
	return created, nil
}

func (s *Service) applyActive(ctx context.Context, c *Category, active bool) error {
	now := s.nowFunc()
	if active {
		c.Activate(now)
		return nil
	}

	open, err := s.repo.CountUnclosedTickets(ctx, c.ID)
	if err != nil {
		s.logger.Error("failed to count category tickets", "error", err, "category_id", c.ID)
		return errors.NewStorageError("failed to count category tickets", err)
	}
	if open > 0 {
		return errors.NewValidationFieldError("is_active",
			fmt.Sprintf("cannot deactivate a category with %d tickets that are not closed", open),
			errors.ErrCodeValidationFailed)
	}
	c.Deactivate(now)
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.logger.Error("failed to look up category", "error", err, "name", name)
		return errors.NewStorageError("failed to look up category", err)
	}
	if existing != nil && existing.ID != selfID {
		return errors.NewDuplicateName("name", name)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get category", "error", err, "category_id", id)
		return nil, errors.NewStorageError("failed to get category", err)
	}
	if c == nil {
		return nil, errCategoryNotFound
	}
	return FromDataModel(c), nil
}
