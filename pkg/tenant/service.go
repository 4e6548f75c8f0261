package tenant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Purger removes everything a tenant owns in one subsystem: resource rows,
// billing records, object-storage prefix. Registered purgers run before the
// tenant row itself is deleted so no orphaned data survives.
type Purger interface {
	PurgeTenant(ctx context.Context, tenantID uuid.UUID) error
}

// PurgerFunc adapts a function to the Purger interface.
type PurgerFunc func(ctx context.Context, tenantID uuid.UUID) error

func (f PurgerFunc) PurgeTenant(ctx context.Context, tenantID uuid.UUID) error {
	return f(ctx, tenantID)
}

// Service orchestrates tenant lifecycle operations that span multiple
// subsystems. Single-subsystem reads go straight to the Store.
type Service struct {
	store   Store
	purgers []Purger
	log     *slog.Logger
}

func NewService(store Store, log *slog.Logger, purgers ...Purger) *Service {
	if store == nil {
		panic("tenant: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, purgers: purgers, log: log}
}

// Signup creates a new tenant with the given subdomain after validating
// availability. The subdomain is stored lowercased and is immutable after this.
func (s *Service) Signup(ctx context.Context, name, subdomain, ownerEmail string) (*Tenant, error) {
	available, err := IsSubdomainAvailable(ctx, s.store, subdomain)
	if err != nil {
		return nil, fmt.Errorf("subdomain availability check: %w", err)
	}
	if !available {
		if !IsValidSubdomain(subdomain) {
			return nil, ErrInvalidSubdomain
		}
		return nil, ErrSubdomainTaken
	}

	t := &Tenant{
		Subdomain:  subdomain,
		Name:       name,
		OwnerEmail: ownerEmail,
		Status:     StatusActive,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Suspend transitions a tenant to the suspended state, typically after the
// primary subscription lapses.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateStatus(ctx, id, StatusSuspended)
}

// Reactivate returns a suspended tenant to active.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateStatus(ctx, id, StatusActive)
}

// DeleteTenant permanently removes a tenant. All registered purgers run
// first (resource rows, billing records, object-storage prefix); only when
// every purge succeeds is the tenant row deleted. A failed purge aborts the
// deletion so it can be retried without orphaning data.
func (s *Service) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}

	for _, p := range s.purgers {
		if err := p.PurgeTenant(ctx, id); err != nil {
			return fmt.Errorf("tenant purge: %w", err)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "tenant deleted", "tenant_id", id)
	return nil
}
