package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gallerykit/pkg/usage"
)

// Decision is the outcome of a cancellation guard check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Guard blocks cancellations that would leave a tenant's current usage above
// the limit resulting from the cancellation. Callers consult it before the
// provider call is made; only an Allow proceeds to the provider.
type Guard struct {
	subs       SubscriptionStore
	addons     AddonStore
	catalog    *Catalog
	accountant usage.Accountant
}

// NewGuard creates a cancellation guard.
// Panics on nil dependencies to fail fast during initialization.
func NewGuard(subs SubscriptionStore, addons AddonStore, catalog *Catalog, accountant usage.Accountant) *Guard {
	if subs == nil || addons == nil || catalog == nil || accountant == nil {
		panic("billing: guard requires stores, catalog and accountant")
	}
	return &Guard{subs: subs, addons: addons, catalog: catalog, accountant: accountant}
}

// CanCancelAddon checks whether cancelling one add-on keeps current usage
// within the post-cancellation limit: base limit plus the other active
// add-ons of the same type. Usage exactly at the post-cancellation limit is
// allowed; only usage strictly above it blocks.
func (g *Guard) CanCancelAddon(ctx context.Context, tenantID, addonID uuid.UUID) (Decision, error) {
	addon, err := g.addons.GetByID(ctx, addonID)
	if err != nil {
		return Decision{}, err
	}
	// Tenant scoping: an add-on ID from another tenant is not found, not forbidden.
	if addon.TenantID != tenantID {
		return Decision{}, ErrAddonNotFound
	}

	if addon.Status == StatusCancelled {
		// Idempotent: re-cancelling a cancelled add-on changes nothing.
		return allow(), nil
	}

	sub, err := g.subs.Get(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}

	snapshot, err := g.accountant.Usage(ctx, tenantID)
	if err != nil {
		return Decision{}, errors.Join(ErrFailedToCountUse, err)
	}

	remaining, err := g.remainingOfType(ctx, tenantID, addon)
	if err != nil {
		return Decision{}, err
	}

	unit := g.catalog.UnitFor(addon.Type)

	switch addon.Type {
	case AddonStorage:
		postLimit := sub.StorageLimitBytes + remaining*unit
		if snapshot.StorageUsedBytes > postLimit {
			return deny("current storage usage %d bytes exceeds the %d byte limit after cancellation; free up storage first",
				snapshot.StorageUsedBytes, postLimit), nil
		}
	case AddonGalleries:
		postLimit := sub.GalleryLimit + remaining*unit
		if snapshot.GalleriesUsed > postLimit {
			return deny("current gallery count %d exceeds the limit of %d after cancellation; delete galleries first",
				snapshot.GalleriesUsed, postLimit), nil
		}
	default:
		return Decision{}, fmt.Errorf("unknown addon type %q", addon.Type)
	}

	return allow(), nil
}

// CanCancelPlan checks whether the primary plan may be cancelled. Primary
// cancellation suspends the account rather than shrinking entitlements the
// tenant is already using, so it is unconditional.
func (g *Guard) CanCancelPlan(ctx context.Context, tenantID uuid.UUID) (Decision, error) {
	if _, err := g.subs.Get(ctx, tenantID); err != nil {
		return Decision{}, err
	}
	return allow(), nil
}

// remainingOfType sums the quantities of the tenant's other active add-ons
// of the same type as the one being cancelled.
func (g *Guard) remainingOfType(ctx context.Context, tenantID uuid.UUID, cancelling *Addon) (int64, error) {
	active, err := g.addons.ListActiveByType(ctx, tenantID, cancelling.Type)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, a := range active {
		if a.ID == cancelling.ID {
			continue
		}
		total += a.Quantity
	}
	return total, nil
}
