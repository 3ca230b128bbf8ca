package category

type CreateCategoryDTO struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateCategoryDTO is a partial update; nil fields are left unchanged.
type UpdateCategoryDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}
