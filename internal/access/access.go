// Package access holds the authenticated actor and the authorization
// predicates every ticket, comment, file, category and user operation consults.
package access

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNormal Role = "normal"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleNormal
}

type Organization string

const (
	OrganizationInternal Organization = "Internal"
	OrganizationExternal Organization = "External"
)

func (o Organization) Valid() bool {
	return o == OrganizationInternal || o == OrganizationExternal
}

// Actor is the identity performing an operation.
type Actor struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	Organization Organization `json:"organization"`
	Active       bool         `json:"active"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsInternal() bool {
	return a.Organization == OrganizationInternal
}
