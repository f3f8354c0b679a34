package payments

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"backend/internal/apperr"
	"backend/internal/models"
)

// SessionCompleter marks checkout sessions completed (or failed) from
// gateway correlation ids. All methods are idempotent.
type SessionCompleter interface {
	CompleteByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.CheckoutSession, error)
	CompleteByCheckoutSession(ctx context.Context, checkoutSessionID string) (*models.CheckoutSession, error)
	RecordPaymentFailure(ctx context.Context, paymentIntentID, reason string) error
}

// OrderMaterializer converts a completed session into a durable order,
// exactly once per session.
type OrderMaterializer interface {
	CreateOrderFromSession(ctx context.Context, sessionToken string) (*models.Order, error)
}

// ShopDirectory propagates connected-account status changes to shop records.
type ShopDirectory interface {
	UpdateAccountStatus(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool, requirements []string) error
}

const eventDedupTTL = 24 * time.Hour

// EventCache is the slice of the redis client used for best-effort event
// dedup.
type EventCache interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// WebhookProcessor verifies signed gateway events and dispatches them by
// type. Delivery is at-least-once and unordered, so every handler must be
// safe to repeat.
type WebhookProcessor struct {
	signingSecret string
	sessions      SessionCompleter
	orders        OrderMaterializer
	shops         ShopDirectory
	dedup         EventCache

	handlers map[stripe.EventType]func(ctx context.Context, event stripe.Event) error
}

// NewWebhookProcessor wires the event-type dispatch table. The dedup cache
// is optional; without it every delivery goes through the (idempotent)
// handlers.
func NewWebhookProcessor(signingSecret string, sessions SessionCompleter, orders OrderMaterializer, shops ShopDirectory, dedup EventCache) *WebhookProcessor {
	p := &WebhookProcessor{
		signingSecret: signingSecret,
		sessions:      sessions,
		orders:        orders,
		shops:         shops,
		dedup:         dedup,
	}
	p.handlers = map[stripe.EventType]func(ctx context.Context, event stripe.Event) error{
		"payment_intent.succeeded":      p.handlePaymentSucceeded,
		"payment_intent.payment_failed": p.handlePaymentFailed,
		"checkout.session.completed":    p.handleCheckoutSessionCompleted,
		"account.updated":               p.handleAccountUpdated,
	}
	return p
}

// Process verifies the payload signature, deduplicates and dispatches.
// Unknown event types are accepted and logged; the gateway adds new types
// over time and must never see a rejection for them.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, sigHeader string) (string, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, p.signingSecret)
	if err != nil {
		return "", apperr.UnauthorizedErr("webhook signature verification failed")
	}

	handler, ok := p.handlers[event.Type]
	if !ok {
		log.Printf("[WEBHOOK] [INFO] unhandled event type accepted: %s", event.Type)
		return string(event.Type), nil
	}

	if !p.claim(ctx, event.ID) {
		log.Printf("[WEBHOOK] [INFO] duplicate event skipped: %s (%s)", event.ID, event.Type)
		return string(event.Type), nil
	}

	if err := handler(ctx, event); err != nil {
		// Release the claim so the gateway's redelivery is re-processed; the
		// event's effect must not be lost behind the dedup TTL.
		p.release(ctx, event.ID)
		log.Printf("[WEBHOOK] [ERROR] event %s (%s) failed: %v", event.ID, event.Type, err)
		return string(event.Type), err
	}
	return string(event.Type), nil
}

// claim is a best-effort fast path. Correctness does not depend on it: the
// order store's unique constraint makes re-processing a no-op.
func (p *WebhookProcessor) claim(ctx context.Context, eventID string) bool {
	if p.dedup == nil {
		return true
	}
	fresh, err := p.dedup.SetNX(ctx, "webhook:event:"+eventID, 1, eventDedupTTL).Result()
	if err != nil {
		log.Printf("[WEBHOOK] [WARN] dedup cache unavailable: %v", err)
		return true
	}
	return fresh
}

func (p *WebhookProcessor) release(ctx context.Context, eventID string) {
	if p.dedup == nil {
		return
	}
	if err := p.dedup.Del(ctx, "webhook:event:"+eventID).Err(); err != nil {
		log.Printf("[WEBHOOK] [WARN] dedup release failed for %s: %v", eventID, err)
	}
}

func (p *WebhookProcessor) handlePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return apperr.InvalidErr("malformed payment_intent payload")
	}

	session, err := p.sessions.CompleteByPaymentIntent(ctx, intent.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			log.Printf("[WEBHOOK] [WARN] no session for payment intent %s", intent.ID)
			return nil
		}
		return err
	}

	_, err = p.orders.CreateOrderFromSession(ctx, session.PublicToken)
	return err
}

func (p *WebhookProcessor) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return apperr.InvalidErr("malformed payment_intent payload")
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}

	// The session stays processing so the client can retry with a new
	// payment attempt.
	return p.sessions.RecordPaymentFailure(ctx, intent.ID, reason)
}

func (p *WebhookProcessor) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event) error {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return apperr.InvalidErr("malformed checkout.session payload")
	}

	session, err := p.sessions.CompleteByCheckoutSession(ctx, cs.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			log.Printf("[WEBHOOK] [WARN] no session for checkout session %s", cs.ID)
			return nil
		}
		return err
	}

	_, err = p.orders.CreateOrderFromSession(ctx, session.PublicToken)
	return err
}

func (p *WebhookProcessor) handleAccountUpdated(ctx context.Context, event stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return apperr.InvalidErr("malformed account payload")
	}

	var requirements []string
	if account.Requirements != nil {
		requirements = account.Requirements.CurrentlyDue
	}

	err := p.shops.UpdateAccountStatus(ctx, account.ID, account.ChargesEnabled, account.PayoutsEnabled, requirements)
	if apperr.IsKind(err, apperr.NotFound) {
		log.Printf("[WEBHOOK] [WARN] no shop for connected account %s", account.ID)
		return nil
	}
	return err
}
