package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemSubscriptionStore is an in-memory SubscriptionStore for tests.
// Safe for concurrent use.
type MemSubscriptionStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

func NewMemSubscriptionStore() *MemSubscriptionStore {
	return &MemSubscriptionStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *MemSubscriptionStore) Get(_ context.Context, tenantID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subs[tenantID]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemSubscriptionStore) GetByProviderSubID(_ context.Context, providerSubID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if providerSubID != "" {
		for _, sub := range s.subs {
			if sub.ProviderSubID == providerSubID {
				cp := *sub
				return &cp, nil
			}
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemSubscriptionStore) Save(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	if existing, ok := s.subs[sub.TenantID]; ok {
		// Derived extras survive upserts that don't go through SetExtras.
		cp.ExtraStorageBytes = existing.ExtraStorageBytes
		cp.ExtraGalleries = existing.ExtraGalleries
	}
	s.subs[sub.TenantID] = &cp
	return nil
}

func (s *MemSubscriptionStore) SetExtras(_ context.Context, tenantID uuid.UUID, extraStorageBytes, extraGalleries int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[tenantID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.ExtraStorageBytes = extraStorageBytes
	sub.ExtraGalleries = extraGalleries
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// MemAddonStore is an in-memory AddonStore for tests.
// Safe for concurrent use.
type MemAddonStore struct {
	mu     sync.RWMutex
	addons map[uuid.UUID]*Addon
}

func NewMemAddonStore() *MemAddonStore {
	return &MemAddonStore{addons: make(map[uuid.UUID]*Addon)}
}

func (s *MemAddonStore) Create(_ context.Context, addon *Addon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addons {
		if a.ProviderSubID == addon.ProviderSubID {
			return ErrAddonAlreadyExists
		}
	}
	if addon.ID == uuid.Nil {
		addon.ID = uuid.New()
	}
	cp := *addon
	s.addons[addon.ID] = &cp
	return nil
}

func (s *MemAddonStore) GetByID(_ context.Context, id uuid.UUID) (*Addon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.addons[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, ErrAddonNotFound
}

func (s *MemAddonStore) GetByProviderSubID(_ context.Context, providerSubID string) (*Addon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if providerSubID != "" {
		for _, a := range s.addons {
			if a.ProviderSubID == providerSubID {
				cp := *a
				return &cp, nil
			}
		}
	}
	return nil, ErrAddonNotFound
}

func (s *MemAddonStore) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]Addon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Addon
	for _, a := range s.addons {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *MemAddonStore) ListActiveByType(_ context.Context, tenantID uuid.UUID, t AddonType) ([]Addon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Addon
	for _, a := range s.addons {
		if a.TenantID == tenantID && a.Type == t && a.IsActive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *MemAddonStore) Save(_ context.Context, addon *Addon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addons[addon.ID]; !ok {
		return ErrAddonNotFound
	}
	cp := *addon
	s.addons[addon.ID] = &cp
	return nil
}
