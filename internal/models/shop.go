package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shop is the connected merchant. ChargesEnabled and PayoutsEnabled mirror
// the gateway's view of the account and are refreshed by account webhooks.
type Shop struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`

	StripeAccountID string   `bson:"stripeAccountId,omitempty" json:"-"`
	ChargesEnabled  bool     `bson:"chargesEnabled" json:"chargesEnabled"`
	PayoutsEnabled  bool     `bson:"payoutsEnabled" json:"payoutsEnabled"`
	Requirements    []string `bson:"requirements,omitempty" json:"requirements,omitempty"`

	// Optional per-shop override; zero means the platform default applies.
	PlatformFeePercent float64 `bson:"platformFeePercent,omitempty" json:"platformFeePercent,omitempty"`

	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CanAcceptPayments reports whether the shop may legally take a charge at all.
func (s *Shop) CanAcceptPayments() bool {
	return s.IsActive && s.ChargesEnabled
}

// CanSplitPayments reports whether the gateway-level fee split can be used.
// Shops without a transfer-capable account fall back to the platform account
// absorbing the full charge; the fee is then recorded but not split.
func (s *Shop) CanSplitPayments() bool {
	return s.StripeAccountID != "" && s.ChargesEnabled && s.PayoutsEnabled
}
