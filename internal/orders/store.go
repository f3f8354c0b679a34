package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/apperr"
	"backend/internal/models"
)

// Sentinel errors for the two unique constraints on the orders collection.
// The materializer reacts differently to each: a session duplicate means the
// order already exists, a number duplicate means retry with a fresh number.
var (
	ErrDuplicateSession = errors.New("order already exists for checkout session")
	ErrDuplicateNumber  = errors.New("order number already taken")
)

// Store persists orders. Exactly-once materialization rests on the unique
// index over checkoutSessionId, not on application-level locking.
type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, page, limit int64) ([]models.Order, int64, error)

	// SetFulfillmentStatus is a compare-and-set on the fulfillment field.
	SetFulfillmentStatus(ctx context.Context, id primitive.ObjectID, from, to models.FulfillmentStatus) (*models.Order, error)

	// SetPaymentStatus is a compare-and-set on the payment field, optionally
	// recording the gateway refund id.
	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, refundID string) (*models.Order, error)
}

const orderCollection = "orders"

type mongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{db: db}
}

func (s *mongoStore) collection() *mongo.Collection {
	return s.db.Collection(orderCollection)
}

func (s *mongoStore) Insert(ctx context.Context, order *models.Order) error {
	res, err := s.collection().InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return classifyDuplicate(err)
		}
		return apperr.Wrap(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = oid
	}
	return nil
}

// classifyDuplicate inspects the violated index name. Index names are fixed
// in database.EnsureOrderIndexes.
func classifyDuplicate(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "checkoutSessionId_unique"):
		return ErrDuplicateSession
	case strings.Contains(msg, "orderNumber_unique"):
		return ErrDuplicateNumber
	default:
		return apperr.Wrap(err)
	}
}

func (s *mongoStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoStore) GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"checkoutSessionId": sessionID})
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := s.collection().FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundErr("order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &order, nil
}

func (s *mongoStore) List(ctx context.Context, page, limit int64) ([]models.Order, int64, error) {
	total, err := s.collection().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, apperr.Wrap(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(err)
	}
	defer cursor.Close(ctx)

	var result []models.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, 0, apperr.Wrap(err)
	}
	return result, total, nil
}

func (s *mongoStore) SetFulfillmentStatus(ctx context.Context, id primitive.ObjectID, from, to models.FulfillmentStatus) (*models.Order, error) {
	return s.findOneAndSet(ctx,
		bson.M{"_id": id, "fulfillmentStatus": from},
		bson.M{"fulfillmentStatus": to, "updatedAt": time.Now()},
	)
}

func (s *mongoStore) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, refundID string) (*models.Order, error) {
	set := bson.M{"paymentStatus": to, "updatedAt": time.Now()}
	if refundID != "" {
		set["stripeRefundId"] = refundID
	}
	return s.findOneAndSet(ctx, bson.M{"_id": id, "paymentStatus": from}, set)
}

func (s *mongoStore) findOneAndSet(ctx context.Context, filter, set bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := s.collection().FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ConflictErr("order state changed concurrently")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &order, nil
}
