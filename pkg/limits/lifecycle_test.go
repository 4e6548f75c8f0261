package limits_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/limits"
	"github.com/dmitrymomot/gallerykit/pkg/usage"
)

type lifecycleProvider struct {
	mock.Mock
}

func (m *lifecycleProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *lifecycleProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) error {
	return m.Called(ctx, providerSubID).Error(0)
}

func (m *lifecycleProvider) GetSubscription(ctx context.Context, providerSubID string) (*billing.ProviderSubscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderSubscription), args.Error(1)
}

func (m *lifecycleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

// TestSubscriptionLifecycle drives one tenant through the whole billing
// lifecycle over the in-memory stores: plan checkout, enforcement at the
// plan limit, an add-on purchase raising it, the cancellation guard, and a
// redelivered cancellation webhook. Each step observes the state the
// previous one produced, so the steps run in order and must not be
// parallelized.
func TestSubscriptionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const (
		unitGalleries = int64(10)
		unitStorage   = 10 * gib
	)

	source := billing.NewStaticCatalogSource(unitStorage, unitGalleries,
		[]billing.Plan{{
			ID:                "price_starter",
			Name:              "Starter",
			Interval:          billing.BillingIntervalMonthly,
			StorageLimitBytes: 50 * gib,
			GalleryLimit:      25,
		}},
		[]billing.AddonPrice{
			{PriceID: "price_addon_storage", Type: billing.AddonStorage},
			{PriceID: "price_addon_galleries", Type: billing.AddonGalleries},
		})
	catalog, err := source.Load(ctx)
	require.NoError(t, err)

	subs := billing.NewMemSubscriptionStore()
	addons := billing.NewMemAddonStore()
	provider := new(lifecycleProvider)
	recalc := billing.NewRecalculator(subs, addons, catalog)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := billing.NewReconciler(subs, addons, provider, catalog, recalc, log)

	// Usage the accountant reports; the steps below move it around to hit
	// and cross the effective limits.
	snap := usage.Snapshot{}
	accountant := usage.AccountantFunc(func(context.Context, uuid.UUID) (usage.Snapshot, error) {
		return snap, nil
	})
	enforcer := limits.NewEnforcer(subs, accountant)
	guard := billing.NewGuard(subs, addons, catalog, accountant)

	tenantID := uuid.New()
	periodEnd := time.Now().UTC().AddDate(0, 1, 0)

	t.Run("plan checkout activates the starter limits", func(t *testing.T) {
		require.NoError(t, rec.Apply(ctx, &billing.Event{
			ID:             "evt_lifecycle_plan",
			Type:           billing.EventCheckoutCompleted,
			TenantID:       tenantID,
			Kind:           billing.CheckoutPlan,
			SubscriptionID: "sub_lifecycle_primary",
			PriceID:        "price_starter",
			PeriodEnd:      &periodEnd,
		}))

		sub, err := subs.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.True(t, sub.Status.IsActive())
		assert.Equal(t, 50*gib, sub.EffectiveStorageLimit())
		assert.Equal(t, int64(25), sub.EffectiveGalleryLimit())
	})

	t.Run("enforcer denies at the plan limit", func(t *testing.T) {
		snap = usage.Snapshot{GalleriesUsed: 25, StorageUsedBytes: 49 * gib}

		decision, err := enforcer.CheckGalleryCreate(ctx, tenantID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)

		decision, err = enforcer.CheckStorage(ctx, tenantID, 2*gib)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
	})

	t.Run("addon checkout raises the effective limits", func(t *testing.T) {
		provider.On("GetSubscription", mock.Anything, "sub_lifecycle_addon_gal").
			Return(&billing.ProviderSubscription{
				ID:       "sub_lifecycle_addon_gal",
				PriceID:  "price_addon_galleries",
				Status:   billing.StatusActive,
				Quantity: 1,
			}, nil).Once()
		provider.On("GetSubscription", mock.Anything, "sub_lifecycle_addon_sto").
			Return(&billing.ProviderSubscription{
				ID:       "sub_lifecycle_addon_sto",
				PriceID:  "price_addon_storage",
				Status:   billing.StatusActive,
				Quantity: 1,
			}, nil).Once()

		require.NoError(t, rec.Apply(ctx, &billing.Event{
			ID:             "evt_lifecycle_addon_gal",
			Type:           billing.EventCheckoutCompleted,
			TenantID:       tenantID,
			Kind:           billing.CheckoutAddon,
			AddonType:      billing.AddonGalleries,
			SubscriptionID: "sub_lifecycle_addon_gal",
		}))
		require.NoError(t, rec.Apply(ctx, &billing.Event{
			ID:             "evt_lifecycle_addon_sto",
			Type:           billing.EventCheckoutCompleted,
			TenantID:       tenantID,
			Kind:           billing.CheckoutAddon,
			AddonType:      billing.AddonStorage,
			SubscriptionID: "sub_lifecycle_addon_sto",
		}))
		provider.AssertExpectations(t)

		sub, err := subs.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(35), sub.EffectiveGalleryLimit())
		assert.Equal(t, 60*gib, sub.EffectiveStorageLimit())

		decision, err := enforcer.CheckGalleryCreate(ctx, tenantID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)

		decision, err = enforcer.CheckStorage(ctx, tenantID, 2*gib)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("guard blocks cancelling the addon while usage needs it", func(t *testing.T) {
		snap = usage.Snapshot{GalleriesUsed: 30, StorageUsedBytes: 49 * gib}

		addon, err := addons.GetByProviderSubID(ctx, "sub_lifecycle_addon_gal")
		require.NoError(t, err)

		decision, err := guard.CanCancelAddon(ctx, tenantID, addon.ID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.NotEmpty(t, decision.Reason)
	})

	t.Run("guard allows the cancel once usage fits the base limit", func(t *testing.T) {
		snap = usage.Snapshot{GalleriesUsed: 22, StorageUsedBytes: 49 * gib}

		addon, err := addons.GetByProviderSubID(ctx, "sub_lifecycle_addon_gal")
		require.NoError(t, err)

		decision, err := guard.CanCancelAddon(ctx, tenantID, addon.ID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("redelivered cancellation webhook is idempotent", func(t *testing.T) {
		cancelEvent := &billing.Event{
			ID:             "evt_lifecycle_cancel",
			Type:           billing.EventSubscriptionCancelled,
			SubscriptionID: "sub_lifecycle_addon_gal",
		}
		require.NoError(t, rec.Apply(ctx, cancelEvent))

		addon, err := addons.GetByProviderSubID(ctx, "sub_lifecycle_addon_gal")
		require.NoError(t, err)
		require.NotNil(t, addon.CancelledAt)
		cancelledAt := *addon.CancelledAt

		sub, err := subs.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), sub.EffectiveGalleryLimit())
		assert.Equal(t, 60*gib, sub.EffectiveStorageLimit())

		// Second delivery of the same event: no state drift.
		require.NoError(t, rec.Apply(ctx, cancelEvent))

		addon, err = addons.GetByProviderSubID(ctx, "sub_lifecycle_addon_gal")
		require.NoError(t, err)
		require.NotNil(t, addon.CancelledAt)
		assert.Equal(t, cancelledAt, *addon.CancelledAt)

		sub, err = subs.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), sub.EffectiveGalleryLimit())
		assert.Equal(t, 60*gib, sub.EffectiveStorageLimit())
	})

	t.Run("enforcer denies again after the addon is gone", func(t *testing.T) {
		snap = usage.Snapshot{GalleriesUsed: 25, StorageUsedBytes: 49 * gib}

		decision, err := enforcer.CheckGalleryCreate(ctx, tenantID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
	})
}
