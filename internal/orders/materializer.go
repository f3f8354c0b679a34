package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/pricing"
)

// SessionGetter is the narrow slice of the session store the materializer
// needs.
type SessionGetter interface {
	GetByToken(ctx context.Context, token string) (*models.CheckoutSession, error)
}

// The 4-digit space is a known scaling ceiling: the format is a user-facing
// contract, so exhaustion surfaces as an error instead of silently widening
// the number.
const maxOrderNumberAttempts = 25

// Materializer converts completed checkout sessions into durable orders,
// exactly once per session regardless of how many times it is invoked.
type Materializer struct {
	orders   Store
	sessions SessionGetter
}

func NewMaterializer(orders Store, sessions SessionGetter) *Materializer {
	return &Materializer{orders: orders, sessions: sessions}
}

// CreateOrderFromSession is idempotent by construction: the session→order
// relation is the idempotency key, enforced by a unique index. The loser of
// a concurrent race observes the winner's order rather than erroring.
func (m *Materializer) CreateOrderFromSession(ctx context.Context, sessionToken string) (*models.Order, error) {
	session, err := m.sessions.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	if existing, err := m.orders.GetBySessionID(ctx, session.ID); err == nil {
		return existing, nil
	} else if !apperr.IsKind(err, apperr.NotFound) {
		return nil, err
	}

	if session.Status != models.SessionCompleted {
		return nil, apperr.InvalidStateErr("checkout session is not completed")
	}

	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order := orderFromSession(session, generateOrderNumber())

		err := m.orders.Insert(ctx, order)
		switch {
		case err == nil:
			log.Printf("[ORDER] [INFO] order %s created from session %s", order.OrderNumber, session.PublicToken)
			return order, nil
		case errors.Is(err, ErrDuplicateSession):
			// Someone else materialized first; return their order.
			return m.orders.GetBySessionID(ctx, session.ID)
		case errors.Is(err, ErrDuplicateNumber):
			// A fresh number is drawn next attempt; the failed one is never
			// reused, so no numbered gap blocks the retry.
			continue
		default:
			return nil, err
		}
	}

	return nil, apperr.Wrap(fmt.Errorf("order number space exhausted after %d attempts", maxOrderNumberAttempts))
}

// generateOrderNumber draws a human-shareable number. Best-effort
// uniqueness: collisions are resolved by the retry loop against the unique
// index, which is acceptable while order volume stays well below the
// 10000-number space.
func generateOrderNumber() string {
	return fmt.Sprintf("#%04d", rand.Intn(10000))
}

// orderFromSession copies the session's snapshot fields. The order is a
// snapshot of a snapshot: later edits to products, addresses or rates can
// never change it.
func orderFromSession(session *models.CheckoutSession, orderNumber string) *models.Order {
	now := time.Now()
	return &models.Order{
		OrderNumber:       orderNumber,
		CheckoutSessionID: session.ID,
		ShopID:            session.ShopID,
		Customer:          session.Customer,
		Items: []models.OrderItem{
			{
				ProductID: session.ProductID,
				Name:      session.ProductName,
				Price:     session.UnitPrice,
				Quantity:  session.Quantity,
			},
		},
		BillingCycle:          session.BillingCycle,
		ProductPrice:          session.ProductPrice,
		ShippingCost:          session.ShippingCost,
		DiscountAmount:        session.DiscountAmount,
		TotalAmount:           session.TotalAmount,
		PlatformFee:           session.PlatformFee,
		ShopRevenue:           pricing.FromCents(pricing.Cents(session.ProductPrice) + pricing.Cents(session.ShippingCost)),
		StripePaymentIntentID: session.StripePaymentIntentID,
		PaymentStatus:         models.PaymentPaid,
		FulfillmentStatus:     models.FulfillmentUnfulfilled,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
