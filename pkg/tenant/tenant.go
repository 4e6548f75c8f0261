package tenant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a tenant account.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
)

// Tenant represents an isolated business account. Each tenant is reachable
// through its unique subdomain and, optionally, a verified custom domain.
// The subdomain is immutable once assigned; it doubles as the object-storage
// key prefix and must never be reused while billing records reference it.
type Tenant struct {
	ID           uuid.UUID  `json:"id"`
	Subdomain    string     `json:"subdomain"`
	CustomDomain *string    `json:"custom_domain,omitempty"`
	Name         string     `json:"name"`
	OwnerEmail   string     `json:"owner_email"`
	Status       Status     `json:"status"`
	TrialEndsAt  *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

func (t *Tenant) IsSuspended() bool {
	return t.Status == StatusSuspended
}

// Store loads and persists tenants. Implementations must treat subdomain and
// custom domain as unique lookup keys; duplicate inserts surface as
// ErrSubdomainTaken / ErrCustomDomainTaken.
type Store interface {
	// GetByID retrieves a tenant by its primary identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// GetBySubdomain retrieves a tenant by its immutable subdomain.
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// GetByCustomDomain retrieves a tenant by its verified custom domain.
	GetByCustomDomain(ctx context.Context, domain string) (*Tenant, error)

	// Create inserts a new tenant.
	Create(ctx context.Context, t *Tenant) error

	// UpdateStatus transitions a tenant's lifecycle state.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// Delete removes a tenant row. Callers are responsible for purging
	// dependent resources first; see Service.DeleteTenant.
	Delete(ctx context.Context, id uuid.UUID) error
}

const (
	// MaxSubdomainLength follows the DNS label limit.
	MaxSubdomainLength = 63
	MinSubdomainLength = 3
)

// subdomainPattern ensures DNS-safe subdomains: alphanumeric start, allows hyphens, no dots.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// reservedSubdomains can never be claimed by a tenant because the platform
// routes them itself or plans to.
var reservedSubdomains = map[string]struct{}{
	"www": {}, "app": {}, "api": {}, "admin": {}, "mail": {}, "smtp": {},
	"blog": {}, "help": {}, "support": {}, "status": {}, "assets": {},
	"cdn": {}, "static": {}, "billing": {}, "dashboard": {}, "docs": {},
	"staging": {}, "dev": {}, "test": {}, "demo": {}, "marketing": {},
}

// IsValidSubdomain reports whether name is a well-formed tenant subdomain.
// Comparison is case-insensitive; callers should store the lowercased form.
func IsValidSubdomain(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < MinSubdomainLength || len(name) > MaxSubdomainLength {
		return false
	}
	if strings.HasSuffix(name, "-") {
		return false
	}
	return subdomainPattern.MatchString(name)
}

// IsReservedSubdomain reports whether name is on the platform's reserved list.
func IsReservedSubdomain(name string) bool {
	_, reserved := reservedSubdomains[strings.ToLower(strings.TrimSpace(name))]
	return reserved
}

// IsSubdomainAvailable reports whether a subdomain can be claimed by a new
// tenant: well-formed, not reserved, and not already taken.
func IsSubdomainAvailable(ctx context.Context, store Store, name string) (bool, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !IsValidSubdomain(name) || IsReservedSubdomain(name) {
		return false, nil
	}

	_, err := store.GetBySubdomain(ctx, name)
	switch {
	case err == nil:
		return false, nil
	case isNotFound(err):
		return true, nil
	default:
		return false, err
	}
}
