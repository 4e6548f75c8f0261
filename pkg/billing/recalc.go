package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Recalculator derives a tenant's effective limits from its active add-on
// set and writes them back onto the subscription row. Must run after every
// state transition that can change the active set: creation, update,
// cancellation. Eager recomputation here keeps the enforcement hot path an
// O(1) read, the right trade since limit checks vastly outnumber billing
// events.
type Recalculator interface {
	Recalculate(ctx context.Context, tenantID uuid.UUID) error
}

type storeRecalculator struct {
	subs    SubscriptionStore
	addons  AddonStore
	catalog *Catalog
}

// NewRecalculator returns a store-backed Recalculator. For PostgreSQL
// deployments prefer PGStore.Recalculator, which recomputes both derived
// fields in a single atomic statement.
func NewRecalculator(subs SubscriptionStore, addons AddonStore, catalog *Catalog) Recalculator {
	if subs == nil || addons == nil || catalog == nil {
		panic("billing: recalculator requires stores and catalog")
	}
	return &storeRecalculator{subs: subs, addons: addons, catalog: catalog}
}

func (r *storeRecalculator) Recalculate(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := r.subs.Get(ctx, tenantID); err != nil {
		return err
	}

	storage, err := r.addons.ListActiveByType(ctx, tenantID, AddonStorage)
	if err != nil {
		return fmt.Errorf("list storage addons: %w", err)
	}
	galleries, err := r.addons.ListActiveByType(ctx, tenantID, AddonGalleries)
	if err != nil {
		return fmt.Errorf("list gallery addons: %w", err)
	}

	extraStorage := sumQuantity(storage) * r.catalog.UnitStorageBytes
	extraGalleries := sumQuantity(galleries) * r.catalog.UnitGalleries

	return r.subs.SetExtras(ctx, tenantID, extraStorage, extraGalleries)
}

func sumQuantity(addons []Addon) int64 {
	var total int64
	for _, a := range addons {
		total += a.Quantity
	}
	return total
}
