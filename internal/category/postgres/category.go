package postgres

import (
	"context"

	"github.com/frahmantamala/support-ticketing/internal/category"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	"gorm.io/gorm"
)

const closedStatus = "Closed"

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context, includeInactive bool) ([]*categoryDatamodel.Category, error) {
	var categories []*categoryDatamodel.Category
	query := r.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&cat).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).Create(cat).Error
}

func (r *CategoryRepository) Update(ctx context.Context, cat *categoryDatamodel.Category) error {
	return r.db.WithContext(ctx).
		Model(&categoryDatamodel.Category{}).
		Where("id = ?", cat.ID).
		Updates(map[string]interface{}{
			"name":        cat.Name,
			"description": cat.Description,
			"is_active":   cat.IsActive,
			"updated_at":  cat.UpdatedAt,
		}).Error
}

func (r *CategoryRepository) CountUnclosedTickets(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ticketDatamodel.Ticket{}).
		Where("category_id = ? AND status <> ?", id, closedStatus).
		Count(&count).Error
	return count, err
}
