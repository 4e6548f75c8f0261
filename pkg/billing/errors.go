package billing

import "errors"

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrAddonNotFound             = errors.New("addon not found")
	ErrAddonAlreadyExists        = errors.New("addon already exists")
	ErrUnknownPriceID            = errors.New("price ID not in catalog")

	ErrCancellationBlocked = errors.New("cancellation blocked by current usage")

	ErrInvalidCatalog   = errors.New("invalid billing catalog")
	ErrCatalogNotLoaded = errors.New("billing catalog could not be loaded")

	// Provider errors
	ErrMissingAPIKey              = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret       = errors.New("billing provider webhook secret is required")
	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed  = errors.New("webhook signature verification failed")
	ErrNoCheckoutURL              = errors.New("no checkout URL returned from provider")
	ErrProviderUnavailable        = errors.New("billing provider unavailable")

	// Reconciliation errors. Returning one of these makes the webhook
	// endpoint answer non-2xx so the provider retries the delivery.
	ErrUnresolvedEvent  = errors.New("webhook event references unknown subscription or tenant")
	ErrMalformedEvent   = errors.New("webhook event payload is malformed")
	ErrFailedToCountUse = errors.New("failed to compute tenant usage")
)
