package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ShippingRate is either one of the well-known default rates or a
// shop-configured rate. Both resolve to this shape.
type ShippingRate struct {
	ID            string             `bson:"_id,omitempty" json:"id"`
	ShopID        primitive.ObjectID `bson:"shopId,omitempty" json:"shopId,omitempty"`
	DisplayName   string             `bson:"displayName" json:"displayName"`
	Amount        float64            `bson:"amount" json:"amount"`
	EstimatedDays int                `bson:"estimatedDays" json:"estimatedDays"`
}

// DefaultShippingRates are always resolvable regardless of shop
// configuration.
var DefaultShippingRates = map[string]ShippingRate{
	"standard":  {ID: "standard", DisplayName: "Standard Shipping", Amount: 5.99, EstimatedDays: 5},
	"express":   {ID: "express", DisplayName: "Express Shipping", Amount: 14.99, EstimatedDays: 2},
	"overnight": {ID: "overnight", DisplayName: "Overnight Shipping", Amount: 29.99, EstimatedDays: 1},
}
