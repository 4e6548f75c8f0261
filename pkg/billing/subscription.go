package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the locally-cached mirror of a tenant's primary
// subscription, authoritative at the payment provider and reconciled through
// webhook events. Each tenant has exactly one; TenantID is the primary key.
//
// ExtraStorageBytes and ExtraGalleries are derived caches, not sources of
// truth: they always equal the sum over active add-ons of quantity times the
// per-type unit size, and are rewritten by Recalculate after every add-on
// state transition. Enforcement reads them as an O(1) lookup.
type Subscription struct {
	TenantID           uuid.UUID  `json:"tenant_id"`
	Plan               string     `json:"plan"` // provider price ID
	Status             Status     `json:"status"`
	StorageLimitBytes  int64      `json:"storage_limit_bytes"`
	GalleryLimit       int64      `json:"gallery_limit"`
	ExtraStorageBytes  int64      `json:"extra_storage_bytes"`
	ExtraGalleries     int64      `json:"extra_galleries"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	ProviderCustomerID string     `json:"provider_customer_id"`
	ProviderSubID      string     `json:"provider_sub_id"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// EffectiveStorageLimit returns the total storage entitlement in bytes:
// base plan limit plus the cached add-on extras.
func (s *Subscription) EffectiveStorageLimit() int64 {
	return s.StorageLimitBytes + s.ExtraStorageBytes
}

// EffectiveGalleryLimit returns the total gallery entitlement:
// base plan limit plus the cached add-on extras.
func (s *Subscription) EffectiveGalleryLimit() int64 {
	return s.GalleryLimit + s.ExtraGalleries
}

func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrialing
}

func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

func (s *Subscription) IsPastDue() bool {
	return s.Status == StatusPastDue
}

// Addon is an independently priced, independently cancellable increment to a
// base entitlement. The provider subscription handle is the unique
// reconciliation join key. Add-ons are never deleted, only
// status-transitioned, so the row doubles as an audit trail.
type Addon struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	Type               AddonType  `json:"type"`
	ProviderSubID      string     `json:"provider_sub_id"` // unique
	ProviderPriceID    string     `json:"provider_price_id"`
	Status             Status     `json:"status"`
	Quantity           int64      `json:"quantity"` // >= 1
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (a *Addon) IsActive() bool {
	return a.Status.IsActive()
}
