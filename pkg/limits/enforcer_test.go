package limits_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/limits"
	"github.com/dmitrymomot/gallerykit/pkg/usage"
)

const gib = int64(1) << 30

func seedSubscription(t *testing.T, subs *billing.MemSubscriptionStore, tenantID uuid.UUID, status billing.Status) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, subs.Save(context.Background(), &billing.Subscription{
		TenantID:          tenantID,
		Plan:              "price_starter",
		Status:            status,
		StorageLimitBytes: 50 * gib,
		GalleryLimit:      25,
		CreatedAt:         now,
		UpdatedAt:         now,
	}))
}

func seedExtras(t *testing.T, subs *billing.MemSubscriptionStore, tenantID uuid.UUID, extraStorage, extraGalleries int64) {
	t.Helper()
	require.NoError(t, subs.SetExtras(context.Background(), tenantID, extraStorage, extraGalleries))
}

func TestEnforcer_CheckStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("allows upload that fills the limit exactly", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{StorageUsedBytes: 49 * gib}))
		decision, err := e.CheckStorage(ctx, tenantID, gib)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 49*gib, decision.Used)
		assert.Equal(t, 50*gib, decision.Limit)
	})

	t.Run("denies upload that would exceed the limit by one byte", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{StorageUsedBytes: 49 * gib}))
		decision, err := e.CheckStorage(ctx, tenantID, gib+1)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.NotEmpty(t, decision.Reason)
	})

	t.Run("addon extras raise the effective limit", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)
		seedExtras(t, subs, tenantID, 10*gib, 0)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{StorageUsedBytes: 55 * gib}))
		decision, err := e.CheckStorage(ctx, tenantID, gib)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 60*gib, decision.Limit)
	})

	t.Run("trialing subscription is enforced like active", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusTrialing)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{}))
		decision, err := e.CheckStorage(ctx, tenantID, gib)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()
		e := limits.NewEnforcer(billing.NewMemSubscriptionStore(), usage.Static(usage.Snapshot{}))

		_, err := e.CheckStorage(ctx, uuid.New(), gib)
		assert.ErrorIs(t, err, limits.ErrNoSubscription)
	})

	t.Run("past due subscription is inactive", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusPastDue)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{}))
		_, err := e.CheckStorage(ctx, tenantID, gib)
		assert.ErrorIs(t, err, limits.ErrInactiveSubscription)
	})

	t.Run("accountant failure", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)

		failing := usage.AccountantFunc(func(context.Context, uuid.UUID) (usage.Snapshot, error) {
			return usage.Snapshot{}, assert.AnError
		})
		e := limits.NewEnforcer(subs, failing)
		_, err := e.CheckStorage(ctx, tenantID, gib)
		assert.ErrorIs(t, err, limits.ErrFailedToMeasureUsage)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestEnforcer_CheckGalleryCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("allows below the limit", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{GalleriesUsed: 24}))
		decision, err := e.CheckGalleryCreate(ctx, tenantID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("denies at exactly the limit", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{GalleriesUsed: 25}))
		decision, err := e.CheckGalleryCreate(ctx, tenantID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(25), decision.Used)
		assert.Equal(t, int64(25), decision.Limit)
		assert.Equal(t, 100, decision.PercentUsed)
	})

	t.Run("gallery extras raise the limit", func(t *testing.T) {
		t.Parallel()
		subs := billing.NewMemSubscriptionStore()
		tenantID := uuid.New()
		seedSubscription(t, subs, tenantID, billing.StatusActive)
		seedExtras(t, subs, tenantID, 0, 10)

		e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{GalleriesUsed: 30}))
		decision, err := e.CheckGalleryCreate(ctx, tenantID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(35), decision.Limit)
	})
}

func TestEnforcer_Usage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	subs := billing.NewMemSubscriptionStore()
	tenantID := uuid.New()
	seedSubscription(t, subs, tenantID, billing.StatusActive)

	e := limits.NewEnforcer(subs, usage.Static(usage.Snapshot{
		StorageUsedBytes: 25 * gib,
		GalleriesUsed:    5,
	}))
	u, err := e.Usage(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 25*gib, u.Storage.Used)
	assert.Equal(t, 50*gib, u.Storage.Limit)
	assert.Equal(t, 50, u.Storage.PercentUsed)
	assert.Equal(t, int64(5), u.Galleries.Used)
	assert.Equal(t, int64(25), u.Galleries.Limit)
	assert.Equal(t, 20, u.Galleries.PercentUsed)
}
