package tenant_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gallerykit/pkg/tenant"
)

func TestService_Signup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates tenant with lowercased subdomain", func(t *testing.T) {
		t.Parallel()
		store := tenant.NewMemStore()
		svc := tenant.NewService(store, noopLogger())

		created, err := svc.Signup(ctx, "Acme Photos", "Acme", "owner@acme.com")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "acme", created.Subdomain)
		assert.Equal(t, "owner@acme.com", created.OwnerEmail)
		assert.Equal(t, tenant.StatusActive, created.Status)

		got, err := store.GetBySubdomain(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("rejects taken subdomain", func(t *testing.T) {
		t.Parallel()
		store := tenant.NewMemStore(&tenant.Tenant{
			ID:        uuid.New(),
			Subdomain: "acme",
			Status:    tenant.StatusActive,
		})
		svc := tenant.NewService(store, noopLogger())

		_, err := svc.Signup(ctx, "Copy Cat", "acme", "cat@example.com")
		assert.ErrorIs(t, err, tenant.ErrSubdomainTaken)
	})

	t.Run("rejects malformed subdomain", func(t *testing.T) {
		t.Parallel()
		svc := tenant.NewService(tenant.NewMemStore(), noopLogger())

		_, err := svc.Signup(ctx, "Bad", "a.b", "bad@example.com")
		assert.ErrorIs(t, err, tenant.ErrInvalidSubdomain)
	})

	t.Run("rejects reserved subdomain", func(t *testing.T) {
		t.Parallel()
		svc := tenant.NewService(tenant.NewMemStore(), noopLogger())

		_, err := svc.Signup(ctx, "Sneaky", "admin", "sneaky@example.com")
		assert.Error(t, err)
	})
}

func TestService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("suspend and reactivate", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		store := tenant.NewMemStore(&tenant.Tenant{ID: id, Subdomain: "acme", Status: tenant.StatusActive})
		svc := tenant.NewService(store, noopLogger())

		require.NoError(t, svc.Suspend(ctx, id))
		got, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusSuspended, got.Status)

		require.NoError(t, svc.Reactivate(ctx, id))
		got, err = store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tenant.StatusActive, got.Status)
	})
}

func TestService_DeleteTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("runs purgers before deleting the row", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		store := tenant.NewMemStore(&tenant.Tenant{ID: id, Subdomain: "acme", Status: tenant.StatusActive})

		var purged []uuid.UUID
		svc := tenant.NewService(store, noopLogger(), tenant.PurgerFunc(func(_ context.Context, tenantID uuid.UUID) error {
			purged = append(purged, tenantID)
			return nil
		}))

		require.NoError(t, svc.DeleteTenant(ctx, id))
		assert.Equal(t, []uuid.UUID{id}, purged)

		_, err := store.GetByID(ctx, id)
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("failed purge aborts the deletion", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		store := tenant.NewMemStore(&tenant.Tenant{ID: id, Subdomain: "acme", Status: tenant.StatusActive})

		svc := tenant.NewService(store, noopLogger(), tenant.PurgerFunc(func(context.Context, uuid.UUID) error {
			return assert.AnError
		}))

		err := svc.DeleteTenant(ctx, id)
		assert.ErrorIs(t, err, assert.AnError)

		// Row survives so the deletion can be retried.
		_, err = store.GetByID(ctx, id)
		assert.NoError(t, err)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()
		svc := tenant.NewService(tenant.NewMemStore(), noopLogger())

		err := svc.DeleteTenant(ctx, uuid.New())
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}
