package category

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultCategories are created by the seed command on an empty database.
var DefaultCategories = []CreateCategoryDTO{
	{Name: "SnC/Modelling", Description: "Speed and consumption modelling"},
	{Name: "Routing/Wx", Description: "Weather routing and forecasts"},
	{Name: "Reporting", Description: "Voyage and noon reporting"},
	{Name: "Dashboard", Description: "Dashboard and visualisation"},
	{Name: "Emissions", Description: "Emissions monitoring and compliance"},
}

func (c *Category) Activate(now time.Time) {
	c.IsActive = true
	c.UpdatedAt = now
}

func (c *Category) Deactivate(now time.Time) {
	c.IsActive = false
	c.UpdatedAt = now
}

func NewCategory(name, description string, now time.Time) *Category {
	return &Category{
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ToDataModel(c *Category) *categoryDatamodel.Category {
	return &categoryDatamodel.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromDataModel(c *categoryDatamodel.Category) *Category {
	return &Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
}
