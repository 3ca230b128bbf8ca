package user

import "github.com/frahmantamala/support-ticketing/internal/core/common/pagination"

type RegisterUserDTO struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin normal"`
}

// UpdateUserDTO is the admin update. Absent fields are left unchanged.
type UpdateUserDTO struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type ResetPasswordDTO struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// UpdateProfileDTO is what users may change about themselves.
type UpdateProfileDTO struct {
	Name *string `json:"name"`
}

type ListResponse struct {
	Users []*User `json:"users"`
	pagination.Meta
}
