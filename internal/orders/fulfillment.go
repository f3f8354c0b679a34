package orders

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperr"
	"backend/internal/models"
)

// FulfillmentService moves orders through
// unfulfilled → fulfilled → shipped → delivered, independent of payment
// state. Transitions are validated against the central table and applied as
// a compare-and-set so concurrent updates cannot interleave.
type FulfillmentService struct {
	store Store
}

func NewFulfillmentService(store Store) *FulfillmentService {
	return &FulfillmentService{store: store}
}

func (f *FulfillmentService) Fulfill(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return f.transition(ctx, id, models.FulfillmentFulfilled)
}

func (f *FulfillmentService) Ship(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return f.transition(ctx, id, models.FulfillmentShipped)
}

func (f *FulfillmentService) Deliver(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return f.transition(ctx, id, models.FulfillmentDelivered)
}

// Cancel is rejected once the order has shipped; those go through a
// support-assisted reversal instead.
func (f *FulfillmentService) Cancel(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return f.transition(ctx, id, models.FulfillmentCancelled)
}

func (f *FulfillmentService) transition(ctx context.Context, id primitive.ObjectID, to models.FulfillmentStatus) (*models.Order, error) {
	order, err := f.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.FulfillmentStatus.CanTransition(to) {
		return nil, apperr.InvalidStateErr("order cannot move from " + string(order.FulfillmentStatus) + " to " + string(to))
	}
	return f.store.SetFulfillmentStatus(ctx, id, order.FulfillmentStatus, to)
}
