package user

import (
	"slices"
	"strings"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
)

var (
	DefaultInternalDomains = []string{"bwesglobal.com"}
	DefaultExternalDomains = []string{"oldendorff.com"}
)

// OrganizationResolver derives a user's organization from the domain of
// their email address. The organization is never taken from input.
type OrganizationResolver struct {
	domains map[string]access.Organization
}

// NewOrganizationResolver falls back to the default domain lists when a
// list is empty.
func NewOrganizationResolver(cfg errors.OrganizationsConfig) *OrganizationResolver {
	internal := cfg.InternalDomains
	if len(internal) == 0 {
		internal = DefaultInternalDomains
	}
	external := cfg.ExternalDomains
	if len(external) == 0 {
		external = DefaultExternalDomains
	}

	r := &OrganizationResolver{domains: make(map[string]access.Organization)}
	for _, d := range internal {
		r.domains[normalizeDomain(d)] = access.OrganizationInternal
	}
	for _, d := range external {
		r.domains[normalizeDomain(d)] = access.OrganizationExternal
	}
	return r
}

func (r *OrganizationResolver) Resolve(email string) (access.Organization, *errors.AppError) {
	at := strings.LastIndex(email, "@")
	if at >= 0 {
		if org, ok := r.domains[normalizeDomain(email[at+1:])]; ok {
			return org, nil
		}
	}
	return "", errors.NewValidationFieldError("email", "email domain is not allowed: "+r.allowed(), errors.ErrCodeInvalidDomain)
}

func (r *OrganizationResolver) allowed() string {
	out := make([]string, 0, len(r.domains))
	for d := range r.domains {
		out = append(out, "@"+d)
	}
	slices.Sort(out)
	return strings.Join(out, ", ")
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
}
