package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// Custom-data keys round-tripped through Paddle checkout sessions so webhook
// events can be joined back to local records.
const (
	customDataTenantID  = "tenant_id"
	customDataCheckout  = "checkout"
	customDataAddonType = "addon_type"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string        `env:"PADDLE_API_KEY,required"`
	WebhookSecret string        `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	Timeout       time.Duration `env:"PADDLE_TIMEOUT" envDefault:"15s"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	timeout  time.Duration
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		timeout:  timeout,
	}, nil
}

// CreateCheckoutSession creates a hosted checkout transaction in Paddle.
// The tenant ID and checkout kind travel in custom data and come back on the
// transaction.completed webhook.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, ErrUnknownPriceID
	}
	if req.TenantID == uuid.Nil {
		return nil, errors.New("tenant ID is required")
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: int(quantity),
	})

	customData := paddle.CustomData{
		customDataTenantID: req.TenantID.String(),
		customDataCheckout: string(req.Kind),
	}
	if req.Kind == CheckoutAddon {
		customData[customDataAddonType] = string(req.AddonType)
	}
	if req.Email != "" {
		customData["email"] = req.Email
	}

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		ID:        transaction.ID,
		URL:       *transaction.Checkout.URL,
		ExpiresAt: time.Now().Add(24 * time.Hour), // Paddle checkout links expire in 24 hours
	}, nil
}

// CancelAtPeriodEnd schedules cancellation effective at the next billing
// period boundary. The local record is updated separately; the authoritative
// state change arrives via the subscription.canceled webhook.
func (p *PaddleProvider) CancelAtPeriodEnd(ctx context.Context, providerSubID string) error {
	if providerSubID == "" {
		return errors.New("provider subscription ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

// GetSubscription retrieves Paddle's view of a subscription, mapped into the
// local vocabulary.
func (p *PaddleProvider) GetSubscription(ctx context.Context, providerSubID string) (*ProviderSubscription, error) {
	if providerSubID == "" {
		return nil, errors.New("provider subscription ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	out := &ProviderSubscription{
		ID:         sub.ID,
		CustomerID: sub.CustomerID,
		Status:     mapPaddleStatus(string(sub.Status)),
		Quantity:   1,
	}

	if len(sub.Items) > 0 {
		out.PriceID = sub.Items[0].Price.ID
		if q := sub.Items[0].Quantity; q > 0 {
			out.Quantity = int64(q)
		}
	}

	if sub.CurrentBillingPeriod != nil {
		out.CurrentPeriodStart = parsePaddleTime(sub.CurrentBillingPeriod.StartsAt)
		out.CurrentPeriodEnd = parsePaddleTime(sub.CurrentBillingPeriod.EndsAt)
	}

	return out, nil
}

// ParseWebhook verifies the Paddle signature and normalizes the payload.
// The raw JSON is parsed into maps rather than SDK notification types so
// unrecognized events still produce a loggable Event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	// The SDK verifier works on an http.Request, so rebuild one.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var paddleEvent struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}

	event := &Event{
		ID:            paddleEvent.EventID,
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Quantity:      1,
		Raw:           paddleEvent.Data,
	}

	data := paddleEvent.Data

	if strings.HasPrefix(paddleEvent.EventType, "subscription.") {
		if subID, ok := data["id"].(string); ok {
			event.SubscriptionID = subID
		}
		event.PeriodStart, event.PeriodEnd = extractPeriod(data, "current_billing_period")
		// Only subscription payloads carry a subscription state. Transaction
		// payloads have a status field too, but it is the transaction's own
		// lifecycle ("completed", "billed") and must not leak into Event.Status.
		if status, ok := data["status"].(string); ok {
			event.Status = string(mapPaddleStatus(status))
		}
	}

	if strings.HasPrefix(paddleEvent.EventType, "transaction.") {
		// Prefer the subscription handle; a transaction ID is useless as a
		// reconciliation join key.
		if subID, ok := data["subscription_id"].(string); ok {
			event.SubscriptionID = subID
		}
		event.PeriodStart, event.PeriodEnd = extractPeriod(data, "billing_period")
	}

	if customerID, ok := data["customer_id"].(string); ok {
		event.CustomerID = customerID
	}

	if customData, ok := data["custom_data"].(map[string]any); ok {
		if raw, ok := customData[customDataTenantID].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				event.TenantID = id
			}
		}
		if kind, ok := customData[customDataCheckout].(string); ok {
			event.Kind = CheckoutKind(kind)
		}
		if at, ok := customData[customDataAddonType].(string); ok {
			event.AddonType = AddonType(at)
		}
	}

	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if price, ok := item["price"].(map[string]any); ok {
				if priceID, ok := price["id"].(string); ok {
					event.PriceID = priceID
				}
			}
			// Transaction items carry a flat price_id.
			if priceID, ok := item["price_id"].(string); ok && event.PriceID == "" {
				event.PriceID = priceID
			}
			if q, ok := item["quantity"].(float64); ok && q > 0 {
				event.Quantity = int64(q)
			}
		}
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event names to the normalized vocabulary.
func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.created", "subscription.updated", "subscription.resumed", "subscription.paused":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "transaction.payment_succeeded":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		// Keep the original name so the reconciler can log and acknowledge.
		return EventType(paddleEvent)
	}
}

// mapPaddleStatus maps Paddle subscription status into the local vocabulary.
func mapPaddleStatus(paddleStatus string) Status {
	switch strings.ToLower(paddleStatus) {
	case "trialing":
		return StatusTrialing
	case "active":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "canceled", "cancelled":
		return StatusCancelled
	case "paused":
		return StatusPaused
	default:
		// Unmapped provider statuses must not reach stored state. An empty
		// status tells the reconciler to leave the current value alone.
		return ""
	}
}

func extractPeriod(data map[string]any, key string) (*time.Time, *time.Time) {
	period, ok := data[key].(map[string]any)
	if !ok {
		return nil, nil
	}
	var start, end *time.Time
	if raw, ok := period["starts_at"].(string); ok {
		start = parsePaddleTime(raw)
	}
	if raw, ok := period["ends_at"].(string); ok {
		end = parsePaddleTime(raw)
	}
	return start, end
}

func parsePaddleTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
