package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/gallerykit/pkg/billing"
	"github.com/dmitrymomot/gallerykit/pkg/limits"
	"github.com/dmitrymomot/gallerykit/pkg/tenant"
)

// maxWebhookBody caps webhook payload reads; Paddle events are small.
const maxWebhookBody = 1 << 20

type handlers struct {
	svc      *billing.Service
	enforcer *limits.Enforcer
	log      *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// paddleWebhook is the provider-facing endpoint. Response codes drive the
// provider's retry behavior: 2xx acknowledges (including events we ignore),
// 4xx rejects permanently, 5xx asks for redelivery.
func (h *handlers) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	signature := r.Header.Get("Paddle-Signature")
	err = h.svc.HandleWebhook(r.Context(), body, signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, billing.ErrWebhookVerificationFailed):
		h.log.WarnContext(r.Context(), "webhook signature rejected")
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, billing.ErrMalformedEvent):
		h.log.WarnContext(r.Context(), "malformed webhook event", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "malformed event")
	default:
		h.log.ErrorContext(r.Context(), "webhook processing failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "processing failed")
	}
}

type checkoutRequest struct {
	PriceID    string `json:"price_id"`
	Email      string `json:"email"`
	SuccessURL string `json:"success_url"`
	Quantity   int64  `json:"quantity"`
}

func (h *handlers) checkout(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.IDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "no tenant in request")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PriceID) == "" {
		writeError(w, http.StatusBadRequest, "price_id is required")
		return
	}

	session, err := h.svc.Checkout(r.Context(), tenantID, req.PriceID, billing.CheckoutOptions{
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
		Quantity:   req.Quantity,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, session)
	case errors.Is(err, billing.ErrUnknownPriceID):
		writeError(w, http.StatusBadRequest, "unknown price")
	case errors.Is(err, billing.ErrSubscriptionAlreadyExists):
		writeError(w, http.StatusConflict, "subscription already exists")
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		writeError(w, http.StatusConflict, "an active subscription is required before purchasing add-ons")
	case errors.Is(err, billing.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "billing provider unavailable")
	default:
		h.log.ErrorContext(r.Context(), "checkout failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "checkout failed")
	}
}

func (h *handlers) cancelPlan(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.IDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "no tenant in request")
		return
	}

	err := h.svc.CancelPlan(r.Context(), tenantID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation scheduled"})
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "no subscription")
	case errors.Is(err, billing.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "billing provider unavailable")
	default:
		h.log.ErrorContext(r.Context(), "plan cancellation failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "cancellation failed")
	}
}

func (h *handlers) cancelAddon(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.IDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "no tenant in request")
		return
	}

	addonID, err := uuid.Parse(chi.URLParam(r, "addonID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid add-on id")
		return
	}

	err = h.svc.CancelAddon(r.Context(), tenantID, addonID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation scheduled"})
	case errors.Is(err, billing.ErrCancellationBlocked):
		// The wrapped message carries the human-readable reason.
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, billing.ErrAddonNotFound):
		writeError(w, http.StatusNotFound, "add-on not found")
	case errors.Is(err, billing.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "billing provider unavailable")
	default:
		h.log.ErrorContext(r.Context(), "add-on cancellation failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "cancellation failed")
	}
}

func (h *handlers) usage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.IDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "no tenant in request")
		return
	}

	u, err := h.enforcer.Usage(r.Context(), tenantID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, u)
	case errors.Is(err, limits.ErrNoSubscription):
		writeError(w, http.StatusNotFound, "no subscription")
	case errors.Is(err, limits.ErrInactiveSubscription):
		writeError(w, http.StatusForbidden, "subscription is not active")
	default:
		h.log.ErrorContext(r.Context(), "usage lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "usage lookup failed")
	}
}
