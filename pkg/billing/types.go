package billing

// Status represents the local subscription state vocabulary. Provider
// statuses are mapped into this set during reconciliation.
type Status string

const (
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusPaused    Status = "paused"
)

// IsActive reports whether the status grants entitlement. Trialing counts:
// trial tenants get full plan limits until the trial resolves.
func (s Status) IsActive() bool {
	return s == StatusActive || s == StatusTrialing
}

// Known reports whether the value belongs to the local vocabulary. Anything
// outside it must never reach stored state.
func (s Status) Known() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCancelled, StatusPaused:
		return true
	}
	return false
}

// AddonType identifies which base entitlement an add-on increments.
type AddonType string

const (
	AddonStorage   AddonType = "storage"
	AddonGalleries AddonType = "galleries"
)

// CheckoutKind distinguishes primary-plan checkouts from add-on checkouts.
// Carried through provider metadata so the webhook reconciler knows which
// record to create.
type CheckoutKind string

const (
	CheckoutPlan  CheckoutKind = "plan"
	CheckoutAddon CheckoutKind = "addon"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// BillingInterval represents the billing frequency for a plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // free plans with no billing
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)
