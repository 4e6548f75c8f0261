package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/gallerykit/pkg/pg"
)

// PGStore is the PostgreSQL-backed tenant store.
// Assumes migrations already created the tenants table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("tenant: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

const tenantColumns = `id, subdomain, custom_domain, name, owner_email, status, trial_ends_at, created_at, updated_at`

func (s *PGStore) scanTenant(row interface{ Scan(dest ...any) error }) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Subdomain, &t.CustomDomain, &t.Name, &t.OwnerEmail, &t.Status, &t.TrialEndsAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return s.scanTenant(row)
}

func (s *PGStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`,
		strings.ToLower(subdomain))
	return s.scanTenant(row)
}

func (s *PGStore) GetByCustomDomain(ctx context.Context, domain string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE custom_domain = $1`,
		strings.ToLower(domain))
	return s.scanTenant(row)
}

func (s *PGStore) Create(ctx context.Context, t *Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Subdomain = strings.ToLower(t.Subdomain)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, subdomain, custom_domain, name, owner_email, status, trial_ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Subdomain, t.CustomDomain, t.Name, t.OwnerEmail, t.Status, t.TrialEndsAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			// Two unique indexes can fire; disambiguate for the caller.
			if t.CustomDomain != nil && strings.Contains(err.Error(), "custom_domain") {
				return errors.Join(ErrCustomDomainTaken, err)
			}
			return errors.Join(ErrSubdomainTaken, err)
		}
		return err
	}
	return nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}
