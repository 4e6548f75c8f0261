package tenant_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gallerykit/pkg/tenant"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestHostResolver_Resolve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	defaultTenant := &tenant.Tenant{
		ID:        uuid.New(),
		Subdomain: "default",
		Name:      "Default",
		Status:    tenant.StatusActive,
	}
	acme := &tenant.Tenant{
		ID:           uuid.New(),
		Subdomain:    "acme",
		CustomDomain: strPtr("photos.acme.com"),
		Name:         "Acme Photos",
		Status:       tenant.StatusActive,
	}

	newResolver := func(store tenant.Store) *tenant.HostResolver {
		return tenant.NewHostResolver(store, tenant.ResolverConfig{
			MarketingDomains: []string{"example.com", "www.example.com"},
			LocalHosts:       []string{"localhost", "127.0.0.1"},
			DefaultTenantID:  defaultTenant.ID,
		}, noopLogger())
	}

	t.Run("local host resolves to the default tenant", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "localhost:8080")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, defaultTenant.ID, res.Tenant.ID)
		assert.False(t, res.MarketingSite)
	})

	t.Run("ipv6 hosts survive port stripping", func(t *testing.T) {
		t.Parallel()
		// Marketing matches require the exact normalized host, so they
		// expose any mangling the port stripper does to the input.
		r := tenant.NewHostResolver(tenant.NewMemStore(defaultTenant, acme), tenant.ResolverConfig{
			MarketingDomains: []string{"example.com", "::1", "[::1]", "2001:db8::1"},
			LocalHosts:       []string{"localhost"},
			DefaultTenantID:  defaultTenant.ID,
		}, noopLogger())

		for _, host := range []string{"::1", "[::1]:8080", "2001:db8::1", "example.com:3000"} {
			res := r.Resolve(ctx, host)
			assert.True(t, res.MarketingSite, "host %q", host)
			assert.Nil(t, res.Tenant, "host %q", host)
		}
	})

	t.Run("marketing domain resolves to no tenant", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "www.example.com")
		assert.True(t, res.MarketingSite)
		assert.Nil(t, res.Tenant)
	})

	t.Run("custom domain takes precedence over subdomain parsing", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "photos.acme.com")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, acme.ID, res.Tenant.ID)
	})

	t.Run("subdomain lookup on three-label hosts", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "acme.example.org")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, acme.ID, res.Tenant.ID)
	})

	t.Run("two-label host skips subdomain lookup", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "acme.org")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, defaultTenant.ID, res.Tenant.ID)
	})

	t.Run("unknown host falls back to the default tenant", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "nobody.example.org")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, defaultTenant.ID, res.Tenant.ID)
	})

	t.Run("host matching is case-insensitive and port-tolerant", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "Photos.ACME.com:443")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, acme.ID, res.Tenant.ID)
	})

	t.Run("trailing dot is stripped", func(t *testing.T) {
		t.Parallel()
		r := newResolver(tenant.NewMemStore(defaultTenant, acme))

		res := r.Resolve(ctx, "photos.acme.com.")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, acme.ID, res.Tenant.ID)
	})

	t.Run("store outage degrades to a bare default tenant", func(t *testing.T) {
		t.Parallel()
		store := tenant.NewMemStore(defaultTenant, acme)
		store.SetFailing(true)
		r := newResolver(store)

		res := r.Resolve(ctx, "acme.example.org")
		require.NotNil(t, res.Tenant)
		assert.Equal(t, defaultTenant.ID, res.Tenant.ID)
		assert.Equal(t, tenant.StatusActive, res.Tenant.Status)
		assert.False(t, res.MarketingSite)
	})
}
