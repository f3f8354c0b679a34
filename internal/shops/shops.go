package shops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/payments"
)

// Service manages the shop's connected merchant account: creation,
// onboarding links and the status mirror refreshed by account webhooks.
type Service struct {
	db      *mongo.Database
	gateway payments.Gateway
	baseURL string
}

func NewService(db *mongo.Database, gateway payments.Gateway, baseURL string) *Service {
	return &Service{db: db, gateway: gateway, baseURL: baseURL}
}

func (s *Service) collection() *mongo.Collection {
	return s.db.Collection("shops")
}

func (s *Service) GetShop(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	var shop models.Shop
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&shop)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundErr("shop not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &shop, nil
}

// CreateConnectAccount provisions the gateway account for a shop that does
// not have one yet and stores the correlation id.
func (s *Service) CreateConnectAccount(ctx context.Context, shopID primitive.ObjectID) (*models.Shop, error) {
	shop, err := s.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop.StripeAccountID != "" {
		return nil, apperr.ConflictErr("shop already has a connected account")
	}

	accountID, err := s.gateway.CreateConnectAccount(ctx, shop.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.collection().UpdateOne(ctx,
		bson.M{"_id": shopID, "stripeAccountId": bson.M{"$in": bson.A{nil, ""}}},
		bson.M{"$set": bson.M{"stripeAccountId": accountID, "updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	shop.StripeAccountID = accountID
	return shop, nil
}

// CreateOnboardingLink returns a fresh gateway onboarding URL for the shop's
// connected account.
func (s *Service) CreateOnboardingLink(ctx context.Context, shopID primitive.ObjectID) (string, error) {
	shop, err := s.GetShop(ctx, shopID)
	if err != nil {
		return "", err
	}
	if shop.StripeAccountID == "" {
		return "", apperr.InvalidStateErr("shop has no connected account yet")
	}

	refreshURL := fmt.Sprintf("%s/shops/%s/onboarding/refresh", s.baseURL, shopID.Hex())
	returnURL := fmt.Sprintf("%s/shops/%s/onboarding/complete", s.baseURL, shopID.Hex())
	return s.gateway.CreateAccountLink(ctx, shop.StripeAccountID, refreshURL, returnURL)
}

// UpdateAccountStatus implements payments.ShopDirectory. Called from
// account.updated webhooks to mirror charges/payouts capability.
func (s *Service) UpdateAccountStatus(ctx context.Context, accountID string, chargesEnabled, payoutsEnabled bool, requirements []string) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"stripeAccountId": accountID},
		bson.M{"$set": bson.M{
			"chargesEnabled": chargesEnabled,
			"payoutsEnabled": payoutsEnabled,
			"requirements":   requirements,
			"updatedAt":      time.Now(),
		}},
	)
	if err != nil {
		return apperr.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundErr("shop not found for connected account")
	}
	return nil
}
