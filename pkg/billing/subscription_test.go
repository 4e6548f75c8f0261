package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
)

func TestSubscriptionEffectiveLimits(t *testing.T) {
	t.Parallel()

	sub := &billing.Subscription{
		StorageLimitBytes: 50 * gib,
		GalleryLimit:      25,
		ExtraStorageBytes: 2 * testUnitStorage,
		ExtraGalleries:    testUnitGalleries,
	}

	assert.Equal(t, 70*gib, sub.EffectiveStorageLimit())
	assert.Equal(t, int64(35), sub.EffectiveGalleryLimit())
}

func TestStatusIsActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status billing.Status
		active bool
	}{
		{billing.StatusActive, true},
		{billing.StatusTrialing, true},
		{billing.StatusPastDue, false},
		{billing.StatusCancelled, false},
		{billing.StatusPaused, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.active, tt.status.IsActive())
		})
	}
}

func TestStatusKnown(t *testing.T) {
	t.Parallel()

	for _, s := range []billing.Status{
		billing.StatusActive,
		billing.StatusTrialing,
		billing.StatusPastDue,
		billing.StatusCancelled,
		billing.StatusPaused,
	} {
		assert.True(t, s.Known(), string(s))
	}

	for _, s := range []billing.Status{"", "completed", "billed", "inactive"} {
		assert.False(t, s.Known(), string(s))
	}
}
