package tenant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and local development.
// Safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Tenant
	failing bool
}

func NewMemStore(tenants ...*Tenant) *MemStore {
	s := &MemStore{byID: make(map[uuid.UUID]*Tenant, len(tenants))}
	for _, t := range tenants {
		cp := *t
		cp.Subdomain = strings.ToLower(cp.Subdomain)
		s.byID[t.ID] = &cp
	}
	return s
}

// SetFailing makes every lookup return an error, simulating store outage.
func (s *MemStore) SetFailing(failing bool) {
	s.mu.Lock()
	s.failing = failing
	s.mu.Unlock()
}

func (s *MemStore) GetByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, errStoreUnavailable
	}
	if t, ok := s.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrTenantNotFound
}

func (s *MemStore) GetBySubdomain(_ context.Context, subdomain string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, errStoreUnavailable
	}
	subdomain = strings.ToLower(subdomain)
	for _, t := range s.byID {
		if t.Subdomain == subdomain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *MemStore) GetByCustomDomain(_ context.Context, domain string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, errStoreUnavailable
	}
	domain = strings.ToLower(domain)
	for _, t := range s.byID {
		if t.CustomDomain != nil && *t.CustomDomain == domain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *MemStore) Create(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreUnavailable
	}
	t.Subdomain = strings.ToLower(t.Subdomain)
	for _, existing := range s.byID {
		if existing.Subdomain == t.Subdomain {
			return ErrSubdomainTaken
		}
		if t.CustomDomain != nil && existing.CustomDomain != nil && *existing.CustomDomain == *t.CustomDomain {
			return ErrCustomDomainTaken
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		t.Status = status
		t.UpdatedAt = time.Now().UTC()
		return nil
	}
	return ErrTenantNotFound
}

func (s *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrTenantNotFound
	}
	delete(s.byID, id)
	return nil
}
