package checkout

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/apperr"
	"backend/internal/models"
)

// GatewayCorrelation carries the external ids stored on the session once a
// payment attempt has been created.
type GatewayCorrelation struct {
	PaymentIntentID   string
	CheckoutSessionID string
	AccountID         string
}

// Store persists checkout sessions. All mutations are single-document
// conditional updates so that concurrent callers coordinate through the
// database, never through in-process locks.
type Store interface {
	Insert(ctx context.Context, session *models.CheckoutSession) error
	GetByToken(ctx context.Context, token string) (*models.CheckoutSession, error)

	// SetInformation overwrites the customer snapshot and advances the step.
	// The whole snapshot is written in one $set, so a double submit resolves
	// to exactly one request's fields (last write wins, no mixing).
	SetInformation(ctx context.Context, token string, info models.CustomerInfo, nextStep int) (*models.CheckoutSession, error)

	SetShipping(ctx context.Context, token, rateID string, shippingCost, totalAmount float64) (*models.CheckoutSession, error)

	// SetPaymentPending stores the gateway correlation ids, records the fee
	// snapshot and moves the session to step 4 / processing.
	SetPaymentPending(ctx context.Context, token string, corr GatewayCorrelation, platformFee float64) (*models.CheckoutSession, error)

	// CompleteByPaymentIntent transitions pending/processing → completed for
	// the session correlated with the given payment intent. The bool reports
	// whether this call applied the transition; false means it had already
	// happened, which callers treat as success.
	CompleteByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.CheckoutSession, bool, error)
	CompleteByCheckoutSession(ctx context.Context, checkoutSessionID string) (*models.CheckoutSession, bool, error)

	RecordPaymentFailure(ctx context.Context, paymentIntentID, reason string) error

	// Expire forces a non-terminal session to expired.
	Expire(ctx context.Context, token string) (*models.CheckoutSession, error)

	// MarkExpiredBefore sweeps long-pending sessions past their deadline.
	// Advisory cleanup for reporting; correctness never depends on it.
	MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}

const sessionCollection = "checkout_sessions"

type mongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{db: db}
}

func (s *mongoStore) collection() *mongo.Collection {
	return s.db.Collection(sessionCollection)
}

func (s *mongoStore) Insert(ctx context.Context, session *models.CheckoutSession) error {
	res, err := s.collection().InsertOne(ctx, session)
	if err != nil {
		return apperr.Wrap(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid
	}
	return nil
}

func (s *mongoStore) GetByToken(ctx context.Context, token string) (*models.CheckoutSession, error) {
	return s.findOne(ctx, bson.M{"publicToken": token})
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.M) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := s.collection().FindOne(ctx, filter).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundErr("checkout session not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &session, nil
}

// mutableFilter restricts updates to sessions that may still change
// financial terms.
func mutableFilter(token string) bson.M {
	return bson.M{
		"publicToken": token,
		"status":      bson.M{"$in": bson.A{models.SessionPending, models.SessionProcessing}},
	}
}

func (s *mongoStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.CheckoutSession, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var session models.CheckoutSession
	err := s.collection().FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mongo.ErrNoDocuments
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &session, nil
}

func (s *mongoStore) SetInformation(ctx context.Context, token string, info models.CustomerInfo, nextStep int) (*models.CheckoutSession, error) {
	session, err := s.findOneAndUpdate(ctx, mutableFilter(token), bson.M{
		"$set": bson.M{
			"customer":    info,
			"currentStep": nextStep,
			"updatedAt":   time.Now(),
		},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.InvalidStateErr("checkout session can no longer be modified")
	}
	return session, err
}

func (s *mongoStore) SetShipping(ctx context.Context, token, rateID string, shippingCost, totalAmount float64) (*models.CheckoutSession, error) {
	session, err := s.findOneAndUpdate(ctx, mutableFilter(token), bson.M{
		"$set": bson.M{
			"shippingRateId": rateID,
			"shippingCost":   shippingCost,
			"totalAmount":    totalAmount,
			"currentStep":    models.StepPayment,
			"updatedAt":      time.Now(),
		},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.InvalidStateErr("checkout session can no longer be modified")
	}
	return session, err
}

func (s *mongoStore) SetPaymentPending(ctx context.Context, token string, corr GatewayCorrelation, platformFee float64) (*models.CheckoutSession, error) {
	set := bson.M{
		"platformFee": platformFee,
		"currentStep": models.StepConfirming,
		"status":      models.SessionProcessing,
		"updatedAt":   time.Now(),
	}
	if corr.PaymentIntentID != "" {
		set["stripePaymentIntentId"] = corr.PaymentIntentID
	}
	if corr.CheckoutSessionID != "" {
		set["stripeCheckoutSessionId"] = corr.CheckoutSessionID
	}
	if corr.AccountID != "" {
		set["stripeAccountId"] = corr.AccountID
	}

	session, err := s.findOneAndUpdate(ctx, mutableFilter(token), bson.M{"$set": set})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.InvalidStateErr("checkout session can no longer be modified")
	}
	return session, err
}

func (s *mongoStore) CompleteByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.CheckoutSession, bool, error) {
	return s.complete(ctx, bson.M{"stripePaymentIntentId": paymentIntentID})
}

func (s *mongoStore) CompleteByCheckoutSession(ctx context.Context, checkoutSessionID string) (*models.CheckoutSession, bool, error) {
	return s.complete(ctx, bson.M{"stripeCheckoutSessionId": checkoutSessionID})
}

// complete performs the pending/processing → completed transition as one
// conditional update. Losing a race (or replaying a webhook) lands in the
// fallback read and reports applied=false.
func (s *mongoStore) complete(ctx context.Context, correlation bson.M) (*models.CheckoutSession, bool, error) {
	filter := bson.M{"status": bson.M{"$in": bson.A{models.SessionPending, models.SessionProcessing}}}
	for k, v := range correlation {
		filter[k] = v
	}

	session, err := s.findOneAndUpdate(ctx, filter, bson.M{
		"$set": bson.M{
			"status":    models.SessionCompleted,
			"updatedAt": time.Now(),
		},
	})
	if err == nil {
		return session, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	existing, ferr := s.findOne(ctx, correlation)
	if ferr != nil {
		return nil, false, ferr
	}
	if existing.Status != models.SessionCompleted {
		return nil, false, apperr.InvalidStateErr("checkout session cannot be completed")
	}
	return existing, false, nil
}

func (s *mongoStore) RecordPaymentFailure(ctx context.Context, paymentIntentID, reason string) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{
			"stripePaymentIntentId": paymentIntentID,
			"status":                models.SessionProcessing,
		},
		bson.M{"$set": bson.M{
			"lastPaymentError": reason,
			"updatedAt":        time.Now(),
		}},
	)
	if err != nil {
		return apperr.Wrap(err)
	}
	return nil
}

func (s *mongoStore) Expire(ctx context.Context, token string) (*models.CheckoutSession, error) {
	session, err := s.findOneAndUpdate(ctx, mutableFilter(token), bson.M{
		"$set": bson.M{
			"status":    models.SessionExpired,
			"updatedAt": time.Now(),
		},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, ferr := s.GetByToken(ctx, token)
		if ferr != nil {
			return nil, ferr
		}
		if existing.Status == models.SessionExpired {
			return existing, nil
		}
		return nil, apperr.InvalidStateErr("checkout session is already finalized")
	}
	return session, err
}

func (s *mongoStore) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.collection().UpdateMany(ctx,
		bson.M{
			"status":    models.SessionPending,
			"expiresAt": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{
			"status":    models.SessionExpired,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return 0, apperr.Wrap(err)
	}
	return res.ModifiedCount, nil
}
