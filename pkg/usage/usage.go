package usage

import (
	"context"

	"github.com/google/uuid"
)

// Snapshot is a tenant's current consumption, recomputed on demand from the
// resource tables. Never cached beyond a single enforcement decision:
// staleness here turns directly into over- or under-enforcement.
type Snapshot struct {
	StorageUsedBytes int64 `json:"storage_used_bytes"`
	GalleriesUsed    int64 `json:"galleries_used"`
}

// Accountant computes current consumption for a tenant. Every query an
// implementation issues must be scoped by tenant ID; a missing tenant filter
// is a cross-tenant data leak, not a style issue.
type Accountant interface {
	Usage(ctx context.Context, tenantID uuid.UUID) (Snapshot, error)
}

// AccountantFunc adapts a function to the Accountant interface.
type AccountantFunc func(ctx context.Context, tenantID uuid.UUID) (Snapshot, error)

func (f AccountantFunc) Usage(ctx context.Context, tenantID uuid.UUID) (Snapshot, error) {
	return f(ctx, tenantID)
}

// Static returns an Accountant that always reports the same snapshot,
// useful in tests.
func Static(s Snapshot) Accountant {
	return AccountantFunc(func(context.Context, uuid.UUID) (Snapshot, error) {
		return s, nil
	})
}
