package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider defines the minimal interface for payment provider integrations.
// The abstraction keeps the reconciler and service provider-agnostic: the
// provider handles all payment complexity through hosted checkouts, and the
// local mirror is updated exclusively through parsed webhook events.
//
// Implementations should use the official provider SDK, verify webhook
// signatures before returning any event, and apply an explicit timeout to
// outbound calls since they cross a network boundary to a third party.
type Provider interface {
	// CreateCheckoutSession creates a hosted checkout session. The request
	// metadata (tenant ID, checkout kind, add-on type) must round-trip
	// through the provider so ParseWebhook can recover it.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// CancelAtPeriodEnd schedules a provider-side cancellation effective at
	// the end of the current billing period.
	CancelAtPeriodEnd(ctx context.Context, providerSubID string) error

	// GetSubscription retrieves the provider's view of a subscription.
	GetSubscription(ctx context.Context, providerSubID string) (*ProviderSubscription, error)

	// ParseWebhook validates the signature and normalizes the event.
	// Must return ErrWebhookVerificationFailed before reading any payload
	// fields when the signature does not verify.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	TenantID   uuid.UUID
	PriceID    string       // provider's price identifier
	Kind       CheckoutKind // plan or addon
	AddonType  AddonType    // set when Kind is CheckoutAddon
	Quantity   int64        // add-on units; 0 means 1
	Email      string       // optional billing email
	SuccessURL string       // redirect after successful payment
}

// CheckoutSession represents a hosted checkout session.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// ProviderSubscription is the provider's authoritative view of one
// subscription, used when a webhook payload alone is not enough (e.g. the
// add-on price handle after checkout completion).
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             Status // already mapped into the local vocabulary
	Quantity           int64
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// EventType is the normalized billing event vocabulary the reconciler
// understands. Provider implementations map their event names onto it;
// unmapped events keep the provider's original name and are acknowledged
// without action.
type EventType string

const (
	EventCheckoutCompleted     EventType = "checkout_completed"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
)

// Event is a normalized webhook event. The provider may deliver the same
// event more than once and in any order relative to other events; the
// reconciler treats every field as "provider's current claim", not as a
// delta, so re-application is always safe.
type Event struct {
	ID            string    // provider event ID, stable across redeliveries
	Type          EventType // normalized type
	ProviderEvent string    // original provider event name

	// Checkout metadata, recovered from custom data set during session
	// creation. Only populated on EventCheckoutCompleted.
	TenantID  uuid.UUID
	Kind      CheckoutKind
	AddonType AddonType

	SubscriptionID string // provider subscription handle (reconciliation join key)
	CustomerID     string // provider customer handle
	Status         string // already mapped into the local Status vocabulary
	PriceID        string
	Quantity       int64
	PeriodStart    *time.Time
	PeriodEnd      *time.Time

	Raw map[string]any // full provider payload for logging/debugging
}
