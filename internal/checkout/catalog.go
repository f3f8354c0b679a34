package checkout

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/apperr"
	"backend/internal/models"
)

// Catalog is the read-only view of products, shops and shop-configured
// shipping rates the checkout flow needs.
type Catalog interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetShop(ctx context.Context, id primitive.ObjectID) (*models.Shop, error)
	GetShippingRate(ctx context.Context, shopID primitive.ObjectID, rateID string) (*models.ShippingRate, error)
}

type mongoCatalog struct {
	db *mongo.Database
}

func NewMongoCatalog(db *mongo.Database) Catalog {
	return &mongoCatalog{db: db}
}

func (c *mongoCatalog) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := c.db.Collection("products").FindOne(ctx, bson.M{
		"_id":       id,
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundErr("product not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &product, nil
}

func (c *mongoCatalog) GetShop(ctx context.Context, id primitive.ObjectID) (*models.Shop, error) {
	var shop models.Shop
	err := c.db.Collection("shops").FindOne(ctx, bson.M{"_id": id}).Decode(&shop)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundErr("shop not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &shop, nil
}

func (c *mongoCatalog) GetShippingRate(ctx context.Context, shopID primitive.ObjectID, rateID string) (*models.ShippingRate, error) {
	var rate models.ShippingRate
	err := c.db.Collection("shipping_rates").FindOne(ctx, bson.M{
		"_id":    rateID,
		"shopId": shopID,
	}).Decode(&rate)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundErr("shipping rate not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &rate, nil
}
