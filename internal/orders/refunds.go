package orders

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/payments"
)

// RefundService drives refunds through the gateway and mirrors the result
// on the order's payment status.
type RefundService struct {
	store   Store
	gateway payments.Gateway
}

func NewRefundService(store Store, gateway payments.Gateway) *RefundService {
	return &RefundService{store: store, gateway: gateway}
}

func (r *RefundService) Refund(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.CanTransition(models.PaymentRefunded) {
		return nil, apperr.InvalidStateErr("order payment cannot be refunded from " + string(order.PaymentStatus))
	}
	if order.StripePaymentIntentID == "" {
		return nil, apperr.InvalidStateErr("order has no gateway payment to refund")
	}

	refundID, err := r.gateway.CreateRefund(ctx, order.StripePaymentIntentID)
	if err != nil {
		return nil, err
	}

	updated, err := r.store.SetPaymentStatus(ctx, id, models.PaymentPaid, models.PaymentRefunded, refundID)
	if err != nil {
		// The gateway refund went through; the status write lost a race.
		log.Printf("[ORDER] [ERROR] refund %s created but status update failed for order %s: %v", refundID, id.Hex(), err)
		return nil, err
	}
	return updated, nil
}

// CancelRefund reverses a pending refund at the gateway and restores the
// paid status. Administrative escape hatch; only valid while the gateway
// still reports the refund as cancelable.
func (r *RefundService) CancelRefund(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentRefunded || order.StripeRefundID == "" {
		return nil, apperr.InvalidStateErr("order has no refund to cancel")
	}

	if err := r.gateway.CancelRefund(ctx, order.StripeRefundID); err != nil {
		return nil, err
	}

	return r.store.SetPaymentStatus(ctx, id, models.PaymentRefunded, models.PaymentPaid, "")
}
