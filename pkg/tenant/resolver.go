package tenant

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Resolution is the outcome of resolving a Host header. Exactly one of the
// two shapes applies: a marketing-site hit (MarketingSite true, Tenant nil)
// or a tenant hit. Downstream code must treat a marketing hit as "no tenant"
// rather than defaulting to any tenant.
type Resolution struct {
	// Tenant is the resolved tenant. Nil only when MarketingSite is true.
	Tenant *Tenant
	// MarketingSite is true when the host is one of the platform's own
	// marketing domains.
	MarketingSite bool
}

// ResolverConfig configures host-based tenant resolution.
//
// DefaultTenantID makes the historical fallback-to-first-tenant behavior an
// explicit, overridable deployment decision instead of an accident of seed
// data. The referenced tenant must exist.
type ResolverConfig struct {
	// MarketingDomains are the platform's own domains that must never
	// resolve to a tenant (e.g. "example.com,www.example.com").
	MarketingDomains []string `env:"TENANT_MARKETING_DOMAINS" envSeparator:","`
	// LocalHosts are development hosts that resolve to the default tenant.
	LocalHosts []string `env:"TENANT_LOCAL_HOSTS" envSeparator:"," envDefault:"localhost,127.0.0.1"`
	// DefaultTenantID is the tenant used for local hosts and as the final
	// fallback when no other rule matches.
	DefaultTenantID uuid.UUID `env:"TENANT_DEFAULT_ID,required"`
}

// HostResolver maps an inbound Host header to exactly one tenant or to the
// marketing site. Resolution is a pure read: same host and unchanged store
// data always produce the same result.
type HostResolver struct {
	store            Store
	marketingDomains []string
	localHosts       []string
	defaultTenantID  uuid.UUID
	log              *slog.Logger
}

// NewHostResolver creates a resolver backed by the given store.
// Panics on nil store to fail fast during initialization.
func NewHostResolver(store Store, cfg ResolverConfig, log *slog.Logger) *HostResolver {
	if store == nil {
		panic("tenant: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}

	normalize := func(hosts []string) []string {
		out := make([]string, 0, len(hosts))
		for _, h := range hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				out = append(out, h)
			}
		}
		return out
	}

	return &HostResolver{
		store:            store,
		marketingDomains: normalize(cfg.MarketingDomains),
		localHosts:       normalize(cfg.LocalHosts),
		defaultTenantID:  cfg.DefaultTenantID,
		log:              log,
	}
}

// Resolve maps a Host header to a Resolution. Rules apply in order, first
// match wins:
//
//  1. local/development hosts resolve to the default tenant
//  2. marketing domains resolve to the marketing site (no tenant)
//  3. exact custom-domain match
//  4. hosts with at least three labels: first label as subdomain lookup
//  5. fallback to the default tenant
//
// Tenant resolution gates the entire request, so store failures degrade to
// the default tenant instead of failing: availability over strictness.
func (r *HostResolver) Resolve(ctx context.Context, host string) Resolution {
	host = normalizeHost(host)

	if slices.Contains(r.localHosts, host) {
		return r.defaultResolution(ctx)
	}

	if slices.Contains(r.marketingDomains, host) {
		return Resolution{MarketingSite: true}
	}

	if t, err := r.store.GetByCustomDomain(ctx, host); err == nil {
		return Resolution{Tenant: t}
	} else if !isNotFound(err) {
		r.log.WarnContext(ctx, "tenant lookup by custom domain failed, using default tenant",
			"host", host, "error", err)
		return r.defaultResolution(ctx)
	}

	if labels := strings.Split(host, "."); len(labels) >= 3 {
		if t, err := r.store.GetBySubdomain(ctx, labels[0]); err == nil {
			return Resolution{Tenant: t}
		} else if !isNotFound(err) {
			r.log.WarnContext(ctx, "tenant lookup by subdomain failed, using default tenant",
				"host", host, "error", err)
			return r.defaultResolution(ctx)
		}
	}

	return r.defaultResolution(ctx)
}

// defaultResolution loads the configured default tenant. If the store is
// unavailable it returns a bare tenant reference carrying only the ID so the
// request can still proceed.
func (r *HostResolver) defaultResolution(ctx context.Context) Resolution {
	t, err := r.store.GetByID(ctx, r.defaultTenantID)
	if err != nil {
		r.log.WarnContext(ctx, "default tenant load failed, degrading to bare reference",
			"tenant_id", r.defaultTenantID, "error", err)
		return Resolution{Tenant: &Tenant{ID: r.defaultTenantID, Status: StatusActive}}
	}
	return Resolution{Tenant: t}
}

// normalizeHost lowercases the host and strips an optional port.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.LastIndex(host, ":"); idx != -1 && isPort(host[idx+1:]) {
		switch {
		case strings.HasPrefix(host, "["):
			// Bracketed IPv6 literal; the colon after "]" starts the port.
			if idx > 0 && host[idx-1] == ']' {
				host = host[:idx]
			}
		case strings.Count(host, ":") == 1:
			host = host[:idx]
			// A bare host with more than one colon is an unbracketed IPv6
			// literal; it carries no port to strip.
		}
	}
	return strings.TrimSuffix(host, ".")
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
