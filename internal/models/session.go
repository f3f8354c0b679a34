package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionExpired    SessionStatus = "expired"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Checkout steps. Step 2 is skipped entirely for products that do not
// require shipping.
const (
	StepInformation = 1
	StepShipping    = 2
	StepPayment     = 3
	StepConfirming  = 4
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionPending:    {SessionProcessing, SessionCompleted, SessionExpired, SessionAbandoned},
	SessionProcessing: {SessionCompleted, SessionExpired, SessionAbandoned},
	SessionCompleted:  {},
	SessionExpired:    {},
	SessionAbandoned:  {},
}

func (s SessionStatus) CanTransition(to SessionStatus) bool {
	for _, next := range sessionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further financial mutation is permitted.
func (s SessionStatus) Terminal() bool {
	return len(sessionTransitions[s]) == 0
}

type BillingCycle string

const (
	CycleOneTime BillingCycle = "one_time"
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// CustomerInfo is the customer snapshot taken at the information step. It is
// copied into the session (and later the order) so that later edits to the
// customer's account never change what was agreed at checkout.
type CustomerInfo struct {
	Email      string `bson:"email" json:"email"`
	Name       string `bson:"name" json:"name"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string `bson:"address,omitempty" json:"address,omitempty"`
	Address2   string `bson:"address2,omitempty" json:"address2,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// CheckoutSession is the transient, TTL-bound record driving the checkout
// state machine. Expired sessions are kept for audit and simply refuse
// further mutation.
type CheckoutSession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PublicToken string             `bson:"publicToken" json:"sessionId"`

	ProductID      primitive.ObjectID `bson:"productId" json:"productId"`
	ShopID         primitive.ObjectID `bson:"shopId" json:"shopId"`
	ShippingRateID string             `bson:"shippingRateId,omitempty" json:"shippingRateId,omitempty"`

	BillingCycle BillingCycle `bson:"billingCycle" json:"billingCycle"`
	Quantity     int          `bson:"quantity" json:"quantity"`

	Customer CustomerInfo `bson:"customer" json:"customer"`

	// Pricing snapshot in major units, captured at selection time and never
	// recomputed from the live catalog. ProductPrice is the line total
	// (UnitPrice × Quantity).
	ProductName    string  `bson:"productName" json:"productName"`
	UnitPrice      float64 `bson:"unitPrice" json:"unitPrice"`
	ProductPrice   float64 `bson:"productPrice" json:"productPrice"`
	ShippingCost   float64 `bson:"shippingCost" json:"shippingCost"`
	DiscountAmount float64 `bson:"discountAmount" json:"discountAmount"`
	TotalAmount    float64 `bson:"totalAmount" json:"totalAmount"`
	PlatformFee    float64 `bson:"platformFee" json:"platformFee"`

	RequiresShipping bool `bson:"requiresShipping" json:"requiresShipping"`

	StripePaymentIntentID   string `bson:"stripePaymentIntentId,omitempty" json:"-"`
	StripeCheckoutSessionID string `bson:"stripeCheckoutSessionId,omitempty" json:"-"`
	StripeAccountID         string `bson:"stripeAccountId,omitempty" json:"-"`

	CurrentStep int           `bson:"currentStep" json:"currentStep"`
	Status      SessionStatus `bson:"status" json:"status"`

	LastPaymentError string `bson:"lastPaymentError,omitempty" json:"-"`

	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (s *CheckoutSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TotalConsistent verifies totalAmount == productPrice + shippingCost −
// discountAmount to within half a cent. Checked after every step transition.
func (s *CheckoutSession) TotalConsistent() bool {
	expected := s.ProductPrice + s.ShippingCost - s.DiscountAmount
	return math.Abs(s.TotalAmount-expected) < 0.005
}
