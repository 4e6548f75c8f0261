package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionStore persists the per-tenant primary subscription mirror.
// One row per tenant; implementations must enforce uniqueness on TenantID
// and surface duplicate inserts as ErrSubscriptionAlreadyExists.
type SubscriptionStore interface {
	// Get retrieves a subscription by tenant ID.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// GetByProviderSubID retrieves a subscription by the provider's
	// subscription handle. Used for webhook joins; must be indexed.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)

	// Save creates or updates a subscription, keyed by TenantID.
	Save(ctx context.Context, sub *Subscription) error

	// SetExtras writes the derived add-on extras. Only Recalculate should
	// call this; everything else treats the fields as read-only.
	SetExtras(ctx context.Context, tenantID uuid.UUID, extraStorageBytes, extraGalleries int64) error
}

// AddonStore persists add-on records. Rows are never deleted, only
// status-transitioned; the provider subscription handle is unique and serves
// as the reconciliation join key.
type AddonStore interface {
	// Create inserts a new add-on. Returns ErrAddonAlreadyExists when the
	// provider subscription handle is already present, which makes
	// duplicate checkout_completed deliveries idempotent.
	Create(ctx context.Context, addon *Addon) error

	// GetByID retrieves an add-on by its local identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*Addon, error)

	// GetByProviderSubID retrieves an add-on by the provider's subscription
	// handle. Used for webhook joins; must be indexed.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Addon, error)

	// ListByTenant returns all add-ons for a tenant regardless of status.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Addon, error)

	// ListActiveByType returns the tenant's active add-ons of one type.
	ListActiveByType(ctx context.Context, tenantID uuid.UUID, t AddonType) ([]Addon, error)

	// Save updates an existing add-on.
	Save(ctx context.Context, addon *Addon) error
}
