package billing_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
)

const testWebhookSecret = "pdl_ntfset_test_secret"

func newTestPaddleProvider(t *testing.T) *billing.PaddleProvider {
	t.Helper()
	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{
		APIKey:        "test_api_key",
		WebhookSecret: testWebhookSecret,
		Environment:   "sandbox",
	})
	require.NoError(t, err)
	return provider
}

// signWebhook produces a Paddle-Signature header value for the payload,
// matching the ts:body HMAC-SHA256 scheme Paddle documents.
func signWebhook(secret string, payload []byte) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(payload)
	return fmt.Sprintf("ts=%s;h1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestPaddleProvider_ParseWebhook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("transaction completed carries no subscription status", func(t *testing.T) {
		t.Parallel()

		provider := newTestPaddleProvider(t)
		tenantID := uuid.New()

		// A transaction payload has its own status field ("completed") that
		// describes the transaction, not the subscription.
		payload := []byte(`{
			"event_id": "evt_01h8bzakzx3hm2fmen703n5q45",
			"event_type": "transaction.completed",
			"data": {
				"id": "txn_01h8bzp33t1atvrvpkhwzvqqkt",
				"status": "completed",
				"customer_id": "ctm_01h8bzh7r1pyzcbmxkfqbmrt0e",
				"subscription_id": "sub_01h8bzvkymjdq8v3wv6yc12p70",
				"currency_code": "USD",
				"billing_period": {
					"starts_at": "2026-08-01T00:00:00Z",
					"ends_at": "2026-09-01T00:00:00Z"
				},
				"custom_data": {"tenant_id": "` + tenantID.String() + `", "checkout": "plan"},
				"items": [{"price": {"id": "price_starter"}, "quantity": 1}]
			}
		}`)

		event, err := provider.ParseWebhook(ctx, payload, signWebhook(testWebhookSecret, payload))
		require.NoError(t, err)

		assert.Equal(t, billing.EventCheckoutCompleted, event.Type)
		assert.Empty(t, event.Status)
		assert.Equal(t, "sub_01h8bzvkymjdq8v3wv6yc12p70", event.SubscriptionID)
		assert.Equal(t, "ctm_01h8bzh7r1pyzcbmxkfqbmrt0e", event.CustomerID)
		assert.Equal(t, "price_starter", event.PriceID)
		assert.Equal(t, tenantID, event.TenantID)
		assert.Equal(t, billing.CheckoutPlan, event.Kind)
		require.NotNil(t, event.PeriodStart)
		require.NotNil(t, event.PeriodEnd)
	})

	t.Run("paid checkout activates the subscription end to end", func(t *testing.T) {
		t.Parallel()

		provider := newTestPaddleProvider(t)
		f := newReconcilerFixture(t)
		tenantID := uuid.New()

		payload := []byte(`{
			"event_id": "evt_01h8c0q2y8d0v7t3m4k5n6p7q8",
			"event_type": "transaction.completed",
			"data": {
				"id": "txn_01h8c0r3z9e1w8u4n5m6p7q8r9",
				"status": "completed",
				"customer_id": "ctm_01h8c0s4a0f2x9v5p6n7q8r9s0",
				"subscription_id": "sub_01h8c0t5b1g3y0w6q7p8r9s0t1",
				"custom_data": {"tenant_id": "` + tenantID.String() + `", "checkout": "plan"},
				"items": [{"price": {"id": "price_starter"}, "quantity": 1}]
			}
		}`)

		event, err := provider.ParseWebhook(ctx, payload, signWebhook(testWebhookSecret, payload))
		require.NoError(t, err)
		require.NoError(t, f.rec.Apply(ctx, event))

		sub, err := f.subs.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.True(t, sub.Status.IsActive())
	})

	t.Run("subscription payload status maps into local vocabulary", func(t *testing.T) {
		t.Parallel()

		provider := newTestPaddleProvider(t)

		payload := []byte(`{
			"event_id": "evt_01h8c1a1b2c3d4e5f6g7h8j9k0",
			"event_type": "subscription.updated",
			"data": {
				"id": "sub_01h8c0t5b1g3y0w6q7p8r9s0t1",
				"status": "past_due",
				"customer_id": "ctm_01h8c0s4a0f2x9v5p6n7q8r9s0",
				"current_billing_period": {
					"starts_at": "2026-08-01T00:00:00Z",
					"ends_at": "2026-09-01T00:00:00Z"
				},
				"items": [{"price": {"id": "price_starter"}, "quantity": 1}]
			}
		}`)

		event, err := provider.ParseWebhook(ctx, payload, signWebhook(testWebhookSecret, payload))
		require.NoError(t, err)

		assert.Equal(t, billing.EventSubscriptionUpdated, event.Type)
		assert.Equal(t, string(billing.StatusPastDue), event.Status)
	})

	t.Run("unmapped provider status is dropped", func(t *testing.T) {
		t.Parallel()

		provider := newTestPaddleProvider(t)

		payload := []byte(`{
			"event_id": "evt_01h8c2a1b2c3d4e5f6g7h8j9k0",
			"event_type": "subscription.updated",
			"data": {
				"id": "sub_01h8c0t5b1g3y0w6q7p8r9s0t1",
				"status": "inactive"
			}
		}`)

		event, err := provider.ParseWebhook(ctx, payload, signWebhook(testWebhookSecret, payload))
		require.NoError(t, err)
		assert.Empty(t, event.Status)
	})

	t.Run("tampered payload fails verification", func(t *testing.T) {
		t.Parallel()

		provider := newTestPaddleProvider(t)

		payload := []byte(`{"event_id": "evt_1", "event_type": "transaction.completed", "data": {}}`)
		signature := signWebhook(testWebhookSecret, payload)
		tampered := []byte(`{"event_id": "evt_2", "event_type": "transaction.completed", "data": {}}`)

		_, err := provider.ParseWebhook(ctx, tampered, signature)
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
	})

	t.Run("malformed signature header fails verification", func(t *testing.T) {
		t.Parallel()

		provider := newTestPaddleProvider(t)

		payload := []byte(`{"event_id": "evt_1", "event_type": "transaction.completed", "data": {}}`)
		_, err := provider.ParseWebhook(ctx, payload, "not-a-signature")
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
	})
}
