package user

import (
	"time"

	"github.com/frahmantamala/support-ticketing/internal/access"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
)

type User struct {
	ID           int64               `json:"id"`
	Email        string              `json:"email"`
	Name         string              `json:"name"`
	PasswordHash string              `json:"-"` // Never expose password hash
	Role         access.Role         `json:"role"`
	Organization access.Organization `json:"organization"`
	IsActive     bool                `json:"is_active"`
	LastLoginAt  *time.Time          `json:"last_login_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == access.RoleAdmin
}

// ToActor returns the identity used by the access policy.
func (u *User) ToActor() access.Actor {
	return access.Actor{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Organization: u.Organization,
		Active:       u.IsActive,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Organization: string(u.Organization),
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	var lastLogin *time.Time
	if u.LastLoginAt != nil {
		t := u.LastLoginAt.UTC()
		lastLogin = &t
	}
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         access.Role(u.Role),
		Organization: access.Organization(u.Organization),
		IsActive:     u.IsActive,
		LastLoginAt:  lastLogin,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}
