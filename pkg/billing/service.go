package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CheckoutOptions contains caller-supplied options for a checkout session.
type CheckoutOptions struct {
	Email      string // pre-fill billing email if known
	SuccessURL string // redirect after successful payment
	Quantity   int64  // add-on units; ignored for plans, defaults to 1
}

// Service ties the billing subsystem together: checkout initiation,
// guarded cancellation, and the webhook entry point. It owns no state beyond
// its dependencies and is safe for concurrent use.
type Service struct {
	subs     SubscriptionStore
	addons   AddonStore
	provider Provider
	catalog  *Catalog
	guard    *Guard
	recalc   Recalculator
	rec      *Reconciler
	log      *slog.Logger
}

// NewService creates the billing service.
// Panics on nil dependencies to fail fast during initialization.
func NewService(subs SubscriptionStore, addons AddonStore, provider Provider, catalog *Catalog, guard *Guard, recalc Recalculator, rec *Reconciler, log *slog.Logger) *Service {
	if subs == nil || addons == nil || provider == nil || catalog == nil || guard == nil || recalc == nil || rec == nil {
		panic("billing: service requires all dependencies")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		subs:     subs,
		addons:   addons,
		provider: provider,
		catalog:  catalog,
		guard:    guard,
		recalc:   recalc,
		rec:      rec,
		log:      log,
	}
}

// GetSubscription retrieves a tenant's subscription mirror.
func (s *Service) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	return s.subs.Get(ctx, tenantID)
}

// ListAddons returns all of a tenant's add-on records, including cancelled
// ones (they are the audit trail).
func (s *Service) ListAddons(ctx context.Context, tenantID uuid.UUID) ([]Addon, error) {
	return s.addons.ListByTenant(ctx, tenantID)
}

// Checkout creates a hosted checkout session for a price ID, which may be a
// base plan or an add-on. The local mirror is not touched here: the state
// change arrives through the checkout_completed webhook.
func (s *Service) Checkout(ctx context.Context, tenantID uuid.UUID, priceID string, opts CheckoutOptions) (*CheckoutSession, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("tenant ID is required")
	}

	if plan, ok := s.catalog.PlanByPriceID(priceID); ok {
		return s.checkoutPlan(ctx, tenantID, plan, opts)
	}
	if addon, ok := s.catalog.AddonByPriceID(priceID); ok {
		return s.checkoutAddon(ctx, tenantID, addon, opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPriceID, priceID)
}

func (s *Service) checkoutPlan(ctx context.Context, tenantID uuid.UUID, plan Plan, opts CheckoutOptions) (*CheckoutSession, error) {
	// One primary subscription per tenant. Plan changes go through the
	// provider's management surface, not a second checkout.
	if existing, err := s.subs.Get(ctx, tenantID); err == nil {
		if !existing.IsCancelled() {
			return nil, ErrSubscriptionAlreadyExists
		}
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	// Free plans bypass the provider entirely for instant activation.
	if plan.Interval == BillingIntervalNone {
		now := time.Now().UTC()
		sub := &Subscription{
			TenantID:          tenantID,
			Plan:              plan.ID,
			Status:            StatusActive,
			StorageLimitBytes: plan.StorageLimitBytes,
			GalleryLimit:      plan.GalleryLimit,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.subs.Save(ctx, sub); err != nil {
			return nil, fmt.Errorf("save free plan subscription: %w", err)
		}
		return &CheckoutSession{
			URL:       opts.SuccessURL,
			ExpiresAt: now.Add(5 * time.Minute),
		}, nil
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		TenantID:   tenantID,
		PriceID:    plan.ID,
		Kind:       CheckoutPlan,
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
	})
}

func (s *Service) checkoutAddon(ctx context.Context, tenantID uuid.UUID, addon AddonPrice, opts CheckoutOptions) (*CheckoutSession, error) {
	// Add-ons extend a base entitlement; without a subscription there is
	// nothing to extend.
	if _, err := s.subs.Get(ctx, tenantID); err != nil {
		return nil, err
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		TenantID:   tenantID,
		PriceID:    addon.PriceID,
		Kind:       CheckoutAddon,
		AddonType:  addon.Type,
		Quantity:   opts.Quantity,
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
	})
}

// CancelAddon cancels one add-on: guard check first, then the provider
// cancellation (at period end), then the local record is marked cancelled
// and derived limits recomputed. A guard denial returns
// ErrCancellationBlocked with the human-readable reason attached.
func (s *Service) CancelAddon(ctx context.Context, tenantID, addonID uuid.UUID) error {
	decision, err := s.guard.CanCancelAddon(ctx, tenantID, addonID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrCancellationBlocked, decision.Reason)
	}

	addon, err := s.addons.GetByID(ctx, addonID)
	if err != nil {
		return err
	}
	if addon.Status == StatusCancelled {
		return nil
	}

	// Provider first: if the upstream call fails nothing local has changed
	// and the operation is safe to retry.
	if err := s.provider.CancelAtPeriodEnd(ctx, addon.ProviderSubID); err != nil {
		return err
	}

	now := time.Now().UTC()
	addon.Status = StatusCancelled
	addon.CancelledAt = &now
	addon.UpdatedAt = now
	if err := s.addons.Save(ctx, addon); err != nil {
		return err
	}

	return s.recalc.Recalculate(ctx, tenantID)
}

// CancelPlan schedules cancellation of the primary subscription at period
// end. No usage gate applies: losing the primary plan suspends the account
// rather than stranding resources above a shrunken limit.
func (s *Service) CancelPlan(ctx context.Context, tenantID uuid.UUID) error {
	decision, err := s.guard.CanCancelPlan(ctx, tenantID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrCancellationBlocked, decision.Reason)
	}

	sub, err := s.subs.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if sub.IsCancelled() || sub.CancelAtPeriodEnd {
		return nil
	}

	// Free plans have no provider-side subscription to cancel.
	if sub.ProviderSubID != "" {
		if err := s.provider.CancelAtPeriodEnd(ctx, sub.ProviderSubID); err != nil {
			return err
		}
	}

	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = time.Now().UTC()
	return s.subs.Save(ctx, sub)
}

// HandleWebhook is the webhook entry point: signature verification happens
// inside the provider's ParseWebhook before any state is read, then the
// event is applied through the reconciler.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "processing billing event",
		"event_id", event.ID, "event_type", event.ProviderEvent)

	return s.rec.Apply(ctx, event)
}

// Recalculate re-derives a tenant's add-on extras. Exposed for admin
// tooling and backfills; normal operation recalculates through the
// reconciler.
func (s *Service) Recalculate(ctx context.Context, tenantID uuid.UUID) error {
	return s.recalc.Recalculate(ctx, tenantID)
}
