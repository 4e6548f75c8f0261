// Package tenant maps inbound requests to exactly one tenant and manages the
// tenant lifecycle in a multi-tenant deployment.
//
// Resolution is host-based: custom domains and subdomains map to tenants,
// the platform's marketing domains map to an explicit "no tenant" result,
// and development hosts fall back to a configured default tenant. The
// resolver favors availability over strictness - a lookup-store outage
// degrades to the default tenant instead of failing the request, because
// resolution gates every request in the system.
//
// # Quick Start
//
//	store := tenant.NewPGStore(pool)
//	resolver := tenant.NewHostResolver(store, cfg, log)
//
//	r := chi.NewRouter()
//	r.Use(tenant.Middleware(resolver,
//		tenant.WithCache(tenant.NewRedisCache(redisClient, "tenant:")),
//		tenant.WithSkipPaths("/healthz", "/webhooks/"),
//	))
//
// Handlers read the resolved tenant from the request context:
//
//	t := tenant.MustFromContext(r.Context())
//
// Tenant deletion is orchestrated by Service.DeleteTenant, which runs all
// registered Purgers (resource rows, billing records, object-storage prefix)
// before removing the tenant row itself.
package tenant
