package limits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/usage"
)

// Decision is the outcome of a limit check. Reason is only populated on
// denial and is safe to show to end users.
type Decision struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	Used        int64  `json:"used"`
	Limit       int64  `json:"limit"`
	PercentUsed int    `json:"percent_used"`
}

func allow(used, limit int64) Decision {
	return Decision{Allowed: true, Used: used, Limit: limit, PercentUsed: percent(used, limit)}
}

func deny(used, limit int64, format string, args ...any) Decision {
	return Decision{
		Allowed:     false,
		Reason:      fmt.Sprintf(format, args...),
		Used:        used,
		Limit:       limit,
		PercentUsed: percent(used, limit),
	}
}

func percent(used, limit int64) int {
	if limit <= 0 {
		return 100
	}
	return min(int((used*100)/limit), 100)
}

// Enforcer gates resource creation against the tenant's effective limits.
// Limits come straight off the subscription row (base plan plus cached
// add-on extras), so a check costs one subscription read and one usage read.
type Enforcer struct {
	subs       billing.SubscriptionStore
	accountant usage.Accountant
}

// NewEnforcer creates an Enforcer. Panics if either dependency is nil.
func NewEnforcer(subs billing.SubscriptionStore, accountant usage.Accountant) *Enforcer {
	if subs == nil {
		panic("limits: subscription store is required")
	}
	if accountant == nil {
		panic("limits: usage accountant is required")
	}
	return &Enforcer{subs: subs, accountant: accountant}
}

// CheckStorage reports whether the tenant can store additionalBytes more.
// The upload is denied when current usage plus the new bytes would exceed
// the effective storage limit; filling the limit exactly is allowed.
func (e *Enforcer) CheckStorage(ctx context.Context, tenantID uuid.UUID, additionalBytes int64) (Decision, error) {
	sub, snap, err := e.load(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}

	limit := sub.EffectiveStorageLimit()
	used := snap.StorageUsedBytes
	if used+additionalBytes > limit {
		return deny(used, limit, "storage limit reached: %d of %d bytes used", used, limit), nil
	}
	return allow(used, limit), nil
}

// CheckGalleryCreate reports whether the tenant can create another gallery.
func (e *Enforcer) CheckGalleryCreate(ctx context.Context, tenantID uuid.UUID) (Decision, error) {
	sub, snap, err := e.load(ctx, tenantID)
	if err != nil {
		return Decision{}, err
	}

	limit := sub.EffectiveGalleryLimit()
	used := snap.GalleriesUsed
	if used >= limit {
		return deny(used, limit, "gallery limit reached: %d of %d galleries used", used, limit), nil
	}
	return allow(used, limit), nil
}

// Usage returns the current usage against effective limits for dashboards.
type Usage struct {
	Storage   Decision `json:"storage"`
	Galleries Decision `json:"galleries"`
}

func (e *Enforcer) Usage(ctx context.Context, tenantID uuid.UUID) (Usage, error) {
	sub, snap, err := e.load(ctx, tenantID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		Storage:   allow(snap.StorageUsedBytes, sub.EffectiveStorageLimit()),
		Galleries: allow(snap.GalleriesUsed, sub.EffectiveGalleryLimit()),
	}, nil
}

func (e *Enforcer) load(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, usage.Snapshot, error) {
	sub, err := e.subs.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, usage.Snapshot{}, ErrNoSubscription
		}
		return nil, usage.Snapshot{}, err
	}
	if !sub.Status.IsActive() {
		return nil, usage.Snapshot{}, ErrInactiveSubscription
	}

	snap, err := e.accountant.Usage(ctx, tenantID)
	if err != nil {
		return nil, usage.Snapshot{}, errors.Join(ErrFailedToMeasureUsage, err)
	}
	return sub, snap, nil
}
