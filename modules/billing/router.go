package billing

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/limits"
)

// RouterOptions wires the billing HTTP surface. Service and Enforcer are
// required; Log defaults to slog.Default().
type RouterOptions struct {
	Service  *billing.Service
	Enforcer *limits.Enforcer
	Log      *slog.Logger
}

// Router mounts the billing endpoints. All routes except the webhook expect
// a resolved tenant in the request context.
//
//	r.Mount("/billing", billingmodule.Router(billingmodule.RouterOptions{
//	    Service:  svc,
//	    Enforcer: enforcer,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil {
		panic("billing module: service is required")
	}
	if opts.Enforcer == nil {
		panic("billing module: enforcer is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	h := &handlers{svc: opts.Service, enforcer: opts.Enforcer, log: opts.Log}

	r := chi.NewRouter()
	r.Post("/webhooks/paddle", h.paddleWebhook)
	r.Post("/checkout", h.checkout)
	r.Post("/cancel", h.cancelPlan)
	r.Post("/addons/{addonID}/cancel", h.cancelAddon)
	r.Get("/usage", h.usage)
	return r
}
