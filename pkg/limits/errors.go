package limits

import "errors"

var (
	// ErrNoSubscription is returned when a tenant has no subscription row,
	// so there is no limit to check against.
	ErrNoSubscription = errors.New("no subscription for tenant")

	// ErrInactiveSubscription is returned when the subscription exists but is
	// not in a state that permits new resource creation.
	ErrInactiveSubscription = errors.New("subscription is not active")

	// ErrFailedToMeasureUsage wraps errors from the usage accountant.
	ErrFailedToMeasureUsage = errors.New("failed to measure usage")

	// ErrReservationConflict is returned when a transactional reservation
	// loses the subscription row lock race and should be retried.
	ErrReservationConflict = errors.New("reservation conflict")
)
