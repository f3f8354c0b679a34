package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product carries a base price plus optional cycle-specific prices. A nil
// cycle price means the cycle falls back to the base price.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ShopID      primitive.ObjectID `bson:"shopId" json:"shopId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	Price        float64  `bson:"price" json:"price"`
	WeeklyPrice  *float64 `bson:"weeklyPrice,omitempty" json:"weeklyPrice,omitempty"`
	MonthlyPrice *float64 `bson:"monthlyPrice,omitempty" json:"monthlyPrice,omitempty"`
	YearlyPrice  *float64 `bson:"yearlyPrice,omitempty" json:"yearlyPrice,omitempty"`

	RequiresShipping bool `bson:"requiresShipping" json:"requiresShipping"`

	IsActive  bool       `bson:"isActive" json:"isActive"`
	IsDeleted bool       `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
}
