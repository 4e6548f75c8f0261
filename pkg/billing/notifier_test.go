package billing_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/email"
)

type capturingSender struct {
	sent []email.SendEmailParams
	err  error
}

func (s *capturingSender) SendEmail(_ context.Context, params email.SendEmailParams) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func TestEmailNotifier_PaymentFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	contacts := billing.ContactResolverFunc(func(_ context.Context, tenantID uuid.UUID) (string, error) {
		return "owner@example.com", nil
	})

	t.Run("sends to the billing contact", func(t *testing.T) {
		t.Parallel()
		sender := &capturingSender{}
		n := billing.NewEmailNotifier(sender, contacts, "Gallerykit", noopLogger())

		n.PaymentFailed(ctx, &billing.Subscription{TenantID: uuid.New()})

		require.Len(t, sender.sent, 1)
		msg := sender.sent[0]
		assert.Equal(t, "owner@example.com", msg.SendTo)
		assert.Contains(t, msg.Subject, "payment failed")
		assert.Contains(t, msg.BodyHTML, "past due")
		assert.Equal(t, "billing-payment-failed", msg.Tag)
	})

	t.Run("unresolvable contact is swallowed", func(t *testing.T) {
		t.Parallel()
		sender := &capturingSender{}
		failing := billing.ContactResolverFunc(func(context.Context, uuid.UUID) (string, error) {
			return "", assert.AnError
		})
		n := billing.NewEmailNotifier(sender, failing, "Gallerykit", noopLogger())

		n.PaymentFailed(ctx, &billing.Subscription{TenantID: uuid.New()})
		assert.Empty(t, sender.sent)
	})

	t.Run("sender failure is swallowed", func(t *testing.T) {
		t.Parallel()
		sender := &capturingSender{err: assert.AnError}
		n := billing.NewEmailNotifier(sender, contacts, "Gallerykit", noopLogger())

		// Must not panic or propagate; delivery is best-effort.
		n.PaymentFailed(ctx, &billing.Subscription{TenantID: uuid.New()})
	})
}
