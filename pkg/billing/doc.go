// Package billing manages subscription state, capacity add-ons, and payment
// provider integration for tenant accounts.
//
// The package keeps one subscription row per tenant as the single source of
// truth for plan limits. Add-ons are separate rows joined to provider
// subscriptions by their provider subscription ID; the derived extras columns
// on the subscription row cache the sum of active add-on capacity so limit
// checks never aggregate at request time.
//
// # Architecture
//
//   - Service: Checkout, cancellation, and webhook entry points
//   - Reconciler: Applies provider events idempotently to local state
//   - Provider: Abstracts the payment provider (Paddle implementation included)
//   - Guard: Decides whether a cancellation would strand existing usage
//   - Recalculator: Rebuilds the derived extras from active add-on rows
//   - Catalog: Plan and add-on price definitions loaded from YAML or code
//
// Webhook processing is written for at-least-once delivery with no ordering
// guarantee: duplicate events converge to the same state, cancelled records
// are never resurrected, and every mutation that touches add-ons ends with a
// recalculation so the cached extras self-heal.
//
// # Quick Start
//
//	import "github.com/dmitrymomot/gallerykit/pkg/billing"
//
//	source := billing.NewYAMLCatalogSource("plans.yml")
//	catalog, err := source.Load(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{
//		APIKey:        os.Getenv("PADDLE_API_KEY"),
//		WebhookSecret: os.Getenv("PADDLE_WEBHOOK_SECRET"),
//		Environment:   "sandbox",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	subs := billing.NewPGSubscriptionStore(pool)
//	addons := billing.NewPGAddonStore(pool)
//	recalc := subs.Recalculator(catalog)
//	guard := billing.NewGuard(subs, addons, catalog, accountant)
//	rec := billing.NewReconciler(subs, addons, provider, catalog, recalc, logger)
//	svc := billing.NewService(subs, addons, provider, catalog, guard, recalc, rec, logger)
//
//	// In the webhook handler:
//	if err := svc.HandleWebhook(ctx, body, signature); err != nil {
//		// 5xx so the provider retries
//	}
//
// # Error Handling
//
// The package defines sentinel errors for all expected conditions:
//
//	sub, err := subs.Get(ctx, tenantID)
//	if errors.Is(err, billing.ErrSubscriptionNotFound) {
//		// tenant has never checked out
//	}
//
// Guard denials surface as ErrCancellationBlocked wrapped with a
// human-readable reason suitable for display.
package billing
