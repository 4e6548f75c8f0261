package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gallerykit/pkg/logger"
)

// Notifier receives billing-health signals the reconciler emits alongside
// state transitions. Implementations must be best-effort: a notification
// failure never fails the reconciliation.
type Notifier interface {
	PaymentFailed(ctx context.Context, sub *Subscription)
}

// Reconciler applies normalized provider events to the local subscription
// mirror. Every branch is idempotent: events may be delivered more than once
// and in any order, so each handler is a pure function of the current row
// plus the event payload, never of assumed prior state.
type Reconciler struct {
	subs     SubscriptionStore
	addons   AddonStore
	provider Provider
	catalog  *Catalog
	recalc   Recalculator
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// ReconcilerOption configures optional reconciler behavior.
type ReconcilerOption func(*Reconciler)

// WithNotifier attaches a billing-health notifier.
func WithNotifier(n Notifier) ReconcilerOption {
	return func(r *Reconciler) {
		r.notifier = n
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates a webhook reconciler.
// Panics on nil dependencies to fail fast during initialization.
func NewReconciler(subs SubscriptionStore, addons AddonStore, provider Provider, catalog *Catalog, recalc Recalculator, log *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if subs == nil || addons == nil || provider == nil || catalog == nil || recalc == nil {
		panic("billing: reconciler requires stores, provider, catalog and recalculator")
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Reconciler{
		subs:     subs,
		addons:   addons,
		provider: provider,
		catalog:  catalog,
		recalc:   recalc,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply dispatches one event to its handler. Unrecognized event types are
// logged and acknowledged: the provider does not need to retry events this
// system chooses not to act on. Any returned error means the delivery should
// be answered non-2xx so the provider retries it.
func (r *Reconciler) Apply(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return r.applyCheckoutCompleted(ctx, event)
	case EventSubscriptionUpdated:
		return r.applySubscriptionUpdated(ctx, event)
	case EventSubscriptionCancelled:
		return r.applySubscriptionCancelled(ctx, event)
	case EventPaymentSucceeded:
		return r.applyPaymentHealth(ctx, event, StatusActive)
	case EventPaymentFailed:
		return r.applyPaymentHealth(ctx, event, StatusPastDue)
	default:
		r.log.InfoContext(ctx, "ignoring unhandled billing event",
			"event_id", event.ID, logger.EventType(event.ProviderEvent))
		return nil
	}
}

// target is the record a provider subscription handle resolved to: exactly
// one of addon or primary is set. Resolving once per event keeps every
// downstream branch operating on a known variant instead of repeating the
// lookup-and-guess.
type target struct {
	addon   *Addon
	primary *Subscription
}

func (r *Reconciler) resolveTarget(ctx context.Context, providerSubID string) (target, error) {
	if providerSubID == "" {
		return target{}, ErrMalformedEvent
	}

	addon, err := r.addons.GetByProviderSubID(ctx, providerSubID)
	switch {
	case err == nil:
		return target{addon: addon}, nil
	case !errors.Is(err, ErrAddonNotFound):
		return target{}, err
	}

	sub, err := r.subs.GetByProviderSubID(ctx, providerSubID)
	switch {
	case err == nil:
		return target{primary: sub}, nil
	case errors.Is(err, ErrSubscriptionNotFound):
		return target{}, fmt.Errorf("%w: %s", ErrUnresolvedEvent, providerSubID)
	default:
		return target{}, err
	}
}

func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, event *Event) error {
	if event.TenantID == uuid.Nil {
		return fmt.Errorf("%w: checkout event without tenant metadata", ErrUnresolvedEvent)
	}

	switch event.Kind {
	case CheckoutAddon:
		return r.completeAddonCheckout(ctx, event)
	case CheckoutPlan, "":
		// Historical checkouts predate the kind metadata; they are all
		// primary-plan purchases.
		return r.completePlanCheckout(ctx, event)
	default:
		return fmt.Errorf("%w: unknown checkout kind %q", ErrMalformedEvent, event.Kind)
	}
}

// completeAddonCheckout creates the local add-on record for a finished
// add-on purchase. The price handle and billing period come from the
// provider's authoritative subscription view rather than the transaction
// payload.
func (r *Reconciler) completeAddonCheckout(ctx context.Context, event *Event) error {
	if event.SubscriptionID == "" {
		return fmt.Errorf("%w: addon checkout without subscription handle", ErrMalformedEvent)
	}
	if event.AddonType != AddonStorage && event.AddonType != AddonGalleries {
		return fmt.Errorf("%w: addon checkout with type %q", ErrMalformedEvent, event.AddonType)
	}

	// Duplicate delivery: the record already exists, refresh derived limits
	// and acknowledge.
	if _, err := r.addons.GetByProviderSubID(ctx, event.SubscriptionID); err == nil {
		return r.recalc.Recalculate(ctx, event.TenantID)
	} else if !errors.Is(err, ErrAddonNotFound) {
		return err
	}

	providerSub, err := r.provider.GetSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return fmt.Errorf("retrieve addon subscription: %w", err)
	}

	now := r.now()
	addon := &Addon{
		ID:                 uuid.New(),
		TenantID:           event.TenantID,
		Type:               event.AddonType,
		ProviderSubID:      event.SubscriptionID,
		ProviderPriceID:    providerSub.PriceID,
		Status:             StatusActive,
		Quantity:           providerSub.Quantity,
		CurrentPeriodStart: providerSub.CurrentPeriodStart,
		CurrentPeriodEnd:   providerSub.CurrentPeriodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if addon.Quantity < 1 {
		addon.Quantity = 1
	}
	if providerSub.Status != "" {
		addon.Status = providerSub.Status
	}

	if err := r.addons.Create(ctx, addon); err != nil {
		// Concurrent duplicate delivery lost the insert race; the winner's
		// row is equivalent.
		if !errors.Is(err, ErrAddonAlreadyExists) {
			return err
		}
	}

	return r.recalc.Recalculate(ctx, event.TenantID)
}

// completePlanCheckout upserts the tenant's single primary subscription.
// An existing row is updated in place; uniqueness on tenant ID guarantees
// no duplicates.
func (r *Reconciler) completePlanCheckout(ctx context.Context, event *Event) error {
	plan, ok := r.catalog.PlanByPriceID(event.PriceID)
	if !ok {
		return fmt.Errorf("%w: plan checkout for price %q", ErrUnknownPriceID, event.PriceID)
	}

	now := r.now()
	// The event status is advisory here; anything outside the vocabulary
	// (a transaction status that slipped through, a provider value added
	// after this code shipped) falls back to active, which is what a paid
	// checkout means.
	status := StatusActive
	if s := Status(event.Status); s.Known() {
		status = s
	}

	sub, err := r.subs.Get(ctx, event.TenantID)
	switch {
	case err == nil:
		// Re-checkout or plan switch: update in place.
	case errors.Is(err, ErrSubscriptionNotFound):
		sub = &Subscription{TenantID: event.TenantID, CreatedAt: now}
	default:
		return err
	}

	sub.Plan = plan.ID
	sub.Status = status
	sub.StorageLimitBytes = plan.StorageLimitBytes
	sub.GalleryLimit = plan.GalleryLimit
	sub.ProviderCustomerID = event.CustomerID
	sub.ProviderSubID = event.SubscriptionID
	sub.CurrentPeriodStart = event.PeriodStart
	sub.CurrentPeriodEnd = event.PeriodEnd
	sub.CancelAtPeriodEnd = false
	sub.CancelledAt = nil
	sub.UpdatedAt = now

	if status == StatusTrialing && plan.TrialDays > 0 && sub.TrialEndsAt == nil {
		trialEnd := plan.TrialEndsAt(now)
		sub.TrialEndsAt = &trialEnd
	}

	return r.subs.Save(ctx, sub)
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, event *Event) error {
	t, err := r.resolveTarget(ctx, event.SubscriptionID)
	if err != nil {
		return err
	}

	now := r.now()

	if t.addon != nil {
		a := t.addon
		if s := Status(event.Status); s.Known() {
			a.Status = s
		}
		if event.Quantity > 0 {
			a.Quantity = event.Quantity
		}
		if event.PeriodStart != nil {
			a.CurrentPeriodStart = event.PeriodStart
		}
		if event.PeriodEnd != nil {
			a.CurrentPeriodEnd = event.PeriodEnd
		}
		a.UpdatedAt = now
		if err := r.addons.Save(ctx, a); err != nil {
			return err
		}
		return r.recalc.Recalculate(ctx, a.TenantID)
	}

	sub := t.primary
	if s := Status(event.Status); s.Known() {
		sub.Status = s
	}
	if event.PriceID != "" && event.PriceID != sub.Plan {
		if plan, ok := r.catalog.PlanByPriceID(event.PriceID); ok {
			sub.Plan = plan.ID
			sub.StorageLimitBytes = plan.StorageLimitBytes
			sub.GalleryLimit = plan.GalleryLimit
		}
	}
	if event.PeriodStart != nil {
		sub.CurrentPeriodStart = event.PeriodStart
	}
	if event.PeriodEnd != nil {
		sub.CurrentPeriodEnd = event.PeriodEnd
	}
	sub.UpdatedAt = now
	return r.subs.Save(ctx, sub)
}

func (r *Reconciler) applySubscriptionCancelled(ctx context.Context, event *Event) error {
	t, err := r.resolveTarget(ctx, event.SubscriptionID)
	if err != nil {
		return err
	}

	now := r.now()

	if t.addon != nil {
		a := t.addon
		a.Status = StatusCancelled
		if a.CancelledAt == nil {
			a.CancelledAt = &now
		}
		a.UpdatedAt = now
		if err := r.addons.Save(ctx, a); err != nil {
			return err
		}
		return r.recalc.Recalculate(ctx, a.TenantID)
	}

	sub := t.primary
	sub.Status = StatusCancelled
	if sub.CancelledAt == nil {
		sub.CancelledAt = &now
	}
	sub.UpdatedAt = now
	return r.subs.Save(ctx, sub)
}

// applyPaymentHealth updates payment health on whichever record the handle
// resolves to. No recalculation: payment events change health, not
// entitlement.
func (r *Reconciler) applyPaymentHealth(ctx context.Context, event *Event, status Status) error {
	t, err := r.resolveTarget(ctx, event.SubscriptionID)
	if err != nil {
		return err
	}

	now := r.now()

	if t.addon != nil {
		a := t.addon
		// A cancelled add-on stays cancelled; a late invoice event must not
		// resurrect it.
		if a.Status == StatusCancelled {
			return nil
		}
		a.Status = status
		a.UpdatedAt = now
		return r.addons.Save(ctx, a)
	}

	sub := t.primary
	if sub.Status == StatusCancelled {
		return nil
	}
	changed := sub.Status != status
	sub.Status = status
	sub.UpdatedAt = now
	if err := r.subs.Save(ctx, sub); err != nil {
		return err
	}

	if status == StatusPastDue && changed && r.notifier != nil {
		r.notifier.PaymentFailed(ctx, sub)
	}
	return nil
}
