package billing

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gallerykit/pkg/email"
	"github.com/dmitrymomot/gallerykit/pkg/logger"
)

// ContactResolver maps a tenant to the email address billing notifications
// go to. Implemented by the tenant store layer so this package does not
// depend on tenant internals.
type ContactResolver interface {
	BillingEmail(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// ContactResolverFunc adapts a function to the ContactResolver interface.
type ContactResolverFunc func(ctx context.Context, tenantID uuid.UUID) (string, error)

func (f ContactResolverFunc) BillingEmail(ctx context.Context, tenantID uuid.UUID) (string, error) {
	return f(ctx, tenantID)
}

// EmailNotifier sends billing lifecycle emails. Delivery is best-effort:
// failures are logged, never propagated, so a flaky mail provider cannot fail
// a webhook.
type EmailNotifier struct {
	sender   email.EmailSender
	contacts ContactResolver
	appName  string
	log      *slog.Logger
}

func NewEmailNotifier(sender email.EmailSender, contacts ContactResolver, appName string, log *slog.Logger) *EmailNotifier {
	if sender == nil {
		panic("billing: email sender is required")
	}
	if contacts == nil {
		panic("billing: contact resolver is required")
	}
	if appName == "" {
		appName = "Gallerykit"
	}
	if log == nil {
		log = slog.Default()
	}
	return &EmailNotifier{sender: sender, contacts: contacts, appName: appName, log: log}
}

func (n *EmailNotifier) PaymentFailed(ctx context.Context, sub *Subscription) {
	to, err := n.contacts.BillingEmail(ctx, sub.TenantID)
	if err != nil {
		n.log.ErrorContext(ctx, "failed to resolve billing contact",
			logger.TenantID(sub.TenantID), logger.Error(err))
		return
	}

	name := html.EscapeString(n.appName)
	body := fmt.Sprintf(`<p>We could not process your latest %s payment.</p>
<p>Your subscription is now past due. Please update your payment method to keep your galleries online. We will retry the charge automatically over the next few days.</p>
<p>If the retries fail, your account may be suspended until payment succeeds.</p>`, name)

	err = n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  fmt.Sprintf("%s: payment failed", n.appName),
		BodyHTML: body,
		Tag:      "billing-payment-failed",
	})
	if err != nil {
		n.log.ErrorContext(ctx, "failed to send payment-failed email",
			logger.TenantID(sub.TenantID), logger.Error(err))
	}
}
