package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/gallerykit/pkg/pg"
)

// PGSubscriptionStore is the PostgreSQL-backed SubscriptionStore. The
// subscriptions table has tenant_id as primary key and a unique index on
// provider_sub_id, so both lookup paths are O(1).
type PGSubscriptionStore struct {
	pool *pgxpool.Pool
}

func NewPGSubscriptionStore(pool *pgxpool.Pool) *PGSubscriptionStore {
	if pool == nil {
		panic("billing: pgxpool is required")
	}
	return &PGSubscriptionStore{pool: pool}
}

const subscriptionColumns = `tenant_id, plan, status, storage_limit_bytes, gallery_limit,
	extra_storage_bytes, extra_galleries, current_period_start, current_period_end,
	cancel_at_period_end, provider_customer_id, provider_sub_id, trial_ends_at,
	cancelled_at, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*Subscription, error) {
	var s Subscription
	err := row.Scan(&s.TenantID, &s.Plan, &s.Status, &s.StorageLimitBytes, &s.GalleryLimit,
		&s.ExtraStorageBytes, &s.ExtraGalleries, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd, &s.ProviderCustomerID, &s.ProviderSubID, &s.TrialEndsAt,
		&s.CancelledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (s *PGSubscriptionStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tenant_id = $1`, tenantID)
	return scanSubscription(row)
}

func (s *PGSubscriptionStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_sub_id = $1`, providerSubID)
	return scanSubscription(row)
}

// Save upserts on tenant_id; the derived extras columns are intentionally
// absent from the update set so only SetExtras and Recalculator touch them.
func (s *PGSubscriptionStore) Save(ctx context.Context, sub *Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (tenant_id, plan, status, storage_limit_bytes, gallery_limit,
			extra_storage_bytes, extra_galleries, current_period_start, current_period_end,
			cancel_at_period_end, provider_customer_id, provider_sub_id, trial_ends_at,
			cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			storage_limit_bytes = EXCLUDED.storage_limit_bytes,
			gallery_limit = EXCLUDED.gallery_limit,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_sub_id = EXCLUDED.provider_sub_id,
			trial_ends_at = EXCLUDED.trial_ends_at,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = EXCLUDED.updated_at`,
		sub.TenantID, sub.Plan, sub.Status, sub.StorageLimitBytes, sub.GalleryLimit,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
		sub.ProviderCustomerID, sub.ProviderSubID, sub.TrialEndsAt,
		sub.CancelledAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			// provider_sub_id collided with another tenant's row.
			return errors.Join(ErrSubscriptionAlreadyExists, err)
		}
		if pg.IsForeignKeyViolationError(err) {
			return errors.Join(ErrSubscriptionNotFound, err)
		}
		return err
	}
	return nil
}

func (s *PGSubscriptionStore) SetExtras(ctx context.Context, tenantID uuid.UUID, extraStorageBytes, extraGalleries int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET extra_storage_bytes = $2, extra_galleries = $3, updated_at = now()
		WHERE tenant_id = $1`,
		tenantID, extraStorageBytes, extraGalleries)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Recalculator returns a Recalculator that recomputes both derived columns
// in one atomic statement. The row lock implied by UPDATE serializes
// concurrent recalculations for the same tenant, and computing the sums
// inside the statement means a transient add-on change between read and
// write cannot be observed.
func (s *PGSubscriptionStore) Recalculator(catalog *Catalog) Recalculator {
	if catalog == nil {
		panic("billing: catalog is required")
	}
	return &pgRecalculator{pool: s.pool, catalog: catalog}
}

type pgRecalculator struct {
	pool    *pgxpool.Pool
	catalog *Catalog
}

func (r *pgRecalculator) Recalculate(ctx context.Context, tenantID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions s SET
			extra_storage_bytes = COALESCE((
				SELECT SUM(a.quantity) FROM subscription_addons a
				WHERE a.tenant_id = s.tenant_id
				  AND a.addon_type = 'storage'
				  AND a.status IN ('active', 'trialing')), 0) * $2,
			extra_galleries = COALESCE((
				SELECT SUM(a.quantity) FROM subscription_addons a
				WHERE a.tenant_id = s.tenant_id
				  AND a.addon_type = 'galleries'
				  AND a.status IN ('active', 'trialing')), 0) * $3,
			updated_at = now()
		WHERE s.tenant_id = $1`,
		tenantID, r.catalog.UnitStorageBytes, r.catalog.UnitGalleries)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// PGAddonStore is the PostgreSQL-backed AddonStore. provider_sub_id carries
// a unique index: it is the reconciliation join key and the idempotency
// anchor for duplicate checkout deliveries.
type PGAddonStore struct {
	pool *pgxpool.Pool
}

func NewPGAddonStore(pool *pgxpool.Pool) *PGAddonStore {
	if pool == nil {
		panic("billing: pgxpool is required")
	}
	return &PGAddonStore{pool: pool}
}

const addonColumns = `id, tenant_id, addon_type, provider_sub_id, provider_price_id, status,
	quantity, current_period_start, current_period_end, cancelled_at, created_at, updated_at`

func scanAddon(row interface{ Scan(dest ...any) error }) (*Addon, error) {
	var a Addon
	err := row.Scan(&a.ID, &a.TenantID, &a.Type, &a.ProviderSubID, &a.ProviderPriceID, &a.Status,
		&a.Quantity, &a.CurrentPeriodStart, &a.CurrentPeriodEnd, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAddonNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PGAddonStore) Create(ctx context.Context, addon *Addon) error {
	if addon.ID == uuid.Nil {
		addon.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscription_addons (id, tenant_id, addon_type, provider_sub_id, provider_price_id,
			status, quantity, current_period_start, current_period_end, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		addon.ID, addon.TenantID, addon.Type, addon.ProviderSubID, addon.ProviderPriceID,
		addon.Status, addon.Quantity, addon.CurrentPeriodStart, addon.CurrentPeriodEnd,
		addon.CancelledAt, addon.CreatedAt, addon.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return errors.Join(ErrAddonAlreadyExists, err)
		}
		return err
	}
	return nil
}

func (s *PGAddonStore) GetByID(ctx context.Context, id uuid.UUID) (*Addon, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+addonColumns+` FROM subscription_addons WHERE id = $1`, id)
	return scanAddon(row)
}

func (s *PGAddonStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Addon, error) {
	if providerSubID == "" {
		return nil, ErrAddonNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+addonColumns+` FROM subscription_addons WHERE provider_sub_id = $1`, providerSubID)
	return scanAddon(row)
}

func (s *PGAddonStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Addon, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+addonColumns+` FROM subscription_addons WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Addon
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PGAddonStore) ListActiveByType(ctx context.Context, tenantID uuid.UUID, t AddonType) ([]Addon, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+addonColumns+` FROM subscription_addons
		WHERE tenant_id = $1 AND addon_type = $2 AND status IN ('active', 'trialing')
		ORDER BY created_at`, tenantID, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Addon
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PGAddonStore) Save(ctx context.Context, addon *Addon) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscription_addons SET
			status = $2, quantity = $3, current_period_start = $4, current_period_end = $5,
			cancelled_at = $6, updated_at = $7
		WHERE id = $1`,
		addon.ID, addon.Status, addon.Quantity, addon.CurrentPeriodStart, addon.CurrentPeriodEnd,
		addon.CancelledAt, addon.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAddonNotFound
	}
	return nil
}

// PurgeTenantBilling removes a tenant's billing rows as part of tenant
// deletion. Add-ons are normally never deleted, but tenant deletion is the
// one flow that erases the audit trail along with everything else.
func PurgeTenantBilling(ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID) error {
	if _, err := pool.Exec(ctx, `DELETE FROM subscription_addons WHERE tenant_id = $1`, tenantID); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, `DELETE FROM subscriptions WHERE tenant_id = $1`, tenantID)
	return err
}
