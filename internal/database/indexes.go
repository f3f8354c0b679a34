package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureSessionIndexes makes the public token lookup unique and indexes the
// gateway correlation ids webhooks resolve sessions by.
func EnsureSessionIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("checkout_sessions").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "publicToken", Value: 1}},
			Options: options.Index().SetName("publicToken_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "stripePaymentIntentId", Value: 1}},
			Options: options.Index().
				SetName("stripePaymentIntentId_index").
				SetPartialFilterExpression(bson.M{
					"stripePaymentIntentId": bson.M{"$exists": true},
				}),
		},
		{
			Keys: bson.D{{Key: "stripeCheckoutSessionId", Value: 1}},
			Options: options.Index().
				SetName("stripeCheckoutSessionId_index").
				SetPartialFilterExpression(bson.M{
					"stripeCheckoutSessionId": bson.M{"$exists": true},
				}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("status_expiresAt_index"),
		},
	}

	log.Println("EnsureSessionIndexes: creating checkout session indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureSessionIndexes: index error:", err)
		return err
	}
	return nil
}

// EnsureOrderIndexes creates the two unique constraints order materialization
// depends on. checkoutSessionId_unique is the exactly-once guarantee: the
// loser of a concurrent materialization race hits this index, not a mutex.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "checkoutSessionId", Value: 1}},
			Options: options.Index().SetName("checkoutSessionId_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetName("orderNumber_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "shopId", Value: 1}},
			Options: options.Index().SetName("shopId_index"),
		},
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	return nil
}

// EnsureShopIndexes indexes the connected account id account webhooks
// resolve shops by.
func EnsureShopIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("shops").Indexes()

	accountIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "stripeAccountId", Value: 1}},
		Options: options.Index().
			SetName("stripeAccountId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"stripeAccountId": bson.M{"$exists": true, "$type": "string"},
			}),
	}

	log.Println("EnsureShopIndexes: creating stripeAccountId_unique index")
	_, err := indexes.CreateOne(ctx, accountIndex)
	if err != nil {
		log.Println("EnsureShopIndexes: account index error:", err)
		return err
	}
	return nil
}
