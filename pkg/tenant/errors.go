package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrSubdomainTaken is returned when the subdomain is already claimed.
	ErrSubdomainTaken = errors.New("subdomain is already taken")

	// ErrCustomDomainTaken is returned when the custom domain is already claimed.
	ErrCustomDomainTaken = errors.New("custom domain is already taken")

	// ErrInvalidSubdomain is returned when the subdomain format is invalid.
	ErrInvalidSubdomain = errors.New("invalid subdomain")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInactiveTenant is returned when trying to use a suspended or cancelled tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// errStoreUnavailable simulates a lookup-store outage in MemStore tests.
	errStoreUnavailable = errors.New("tenant store unavailable")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}
