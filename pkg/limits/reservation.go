package limits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reserver runs a limit check and the caller's insert inside one database
// transaction, holding a row lock on the subscription so two concurrent
// requests cannot both pass the check against the same remaining capacity.
//
// The plain Enforcer is sufficient for UI pre-checks and dashboards; use
// Reserver on the write paths where the last unit of capacity matters.
type Reserver struct {
	pool *pgxpool.Pool
}

func NewReserver(pool *pgxpool.Pool) *Reserver {
	if pool == nil {
		panic("limits: pgxpool is required")
	}
	return &Reserver{pool: pool}
}

// ReserveGallery locks the tenant's subscription row, re-checks the gallery
// count against the effective limit, and runs fn with the open transaction.
// fn is expected to insert the gallery row; if fn returns an error the whole
// reservation rolls back.
func (r *Reserver) ReserveGallery(ctx context.Context, tenantID uuid.UUID, fn func(tx pgx.Tx) error) (Decision, error) {
	return r.reserve(ctx, tenantID, func(tx pgx.Tx, storageLimit, galleryLimit int64) (Decision, error) {
		var used int64
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM galleries WHERE tenant_id = $1`, tenantID).Scan(&used)
		if err != nil {
			return Decision{}, fmt.Errorf("count galleries: %w", err)
		}
		if used >= galleryLimit {
			return deny(used, galleryLimit, "gallery limit reached: %d of %d galleries used", used, galleryLimit), nil
		}
		return allow(used, galleryLimit), nil
	}, fn)
}

// ReserveStorage is the storage counterpart of ReserveGallery: it locks the
// subscription row, re-checks used bytes plus additionalBytes against the
// effective limit, and runs fn (the media insert) in the same transaction.
func (r *Reserver) ReserveStorage(ctx context.Context, tenantID uuid.UUID, additionalBytes int64, fn func(tx pgx.Tx) error) (Decision, error) {
	return r.reserve(ctx, tenantID, func(tx pgx.Tx, storageLimit, galleryLimit int64) (Decision, error) {
		var used int64
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(size_bytes), 0) FROM media WHERE tenant_id = $1`,
			tenantID).Scan(&used)
		if err != nil {
			return Decision{}, fmt.Errorf("sum storage: %w", err)
		}
		if used+additionalBytes > storageLimit {
			return deny(used, storageLimit, "storage limit reached: %d of %d bytes used", used, storageLimit), nil
		}
		return allow(used, storageLimit), nil
	}, fn)
}

func (r *Reserver) reserve(
	ctx context.Context,
	tenantID uuid.UUID,
	check func(tx pgx.Tx, storageLimit, galleryLimit int64) (Decision, error),
	fn func(tx pgx.Tx) error,
) (Decision, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("begin reservation: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	// FOR UPDATE serializes reservations per tenant; the lock is released
	// on commit or rollback.
	var status string
	var storageLimit, galleryLimit int64
	err = tx.QueryRow(ctx, `
		SELECT status,
		       storage_limit_bytes + extra_storage_bytes,
		       gallery_limit + extra_galleries
		FROM subscriptions
		WHERE tenant_id = $1
		FOR UPDATE`, tenantID).Scan(&status, &storageLimit, &galleryLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Decision{}, ErrNoSubscription
		}
		return Decision{}, fmt.Errorf("lock subscription: %w", err)
	}
	if status != "active" && status != "trialing" {
		return Decision{}, ErrInactiveSubscription
	}

	decision, err := check(tx, storageLimit, galleryLimit)
	if err != nil {
		return Decision{}, errors.Join(ErrFailedToMeasureUsage, err)
	}
	if !decision.Allowed {
		return decision, nil
	}

	if err := fn(tx); err != nil {
		return Decision{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Decision{}, errors.Join(ErrReservationConflict, err)
	}
	return decision, nil
}
