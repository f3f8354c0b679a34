package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentPaid:     {PaymentRefunded},
	PaymentFailed:   {},
	PaymentRefunded: {},
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentFulfilled   FulfillmentStatus = "fulfilled"
	FulfillmentShipped     FulfillmentStatus = "shipped"
	FulfillmentDelivered   FulfillmentStatus = "delivered"
	FulfillmentCancelled   FulfillmentStatus = "cancelled"
)

// Cancel is only reachable before the parcel leaves the warehouse. Shipped
// and delivered orders go through a support-assisted reversal instead.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentUnfulfilled: {FulfillmentFulfilled, FulfillmentCancelled},
	FulfillmentFulfilled:   {FulfillmentShipped, FulfillmentCancelled},
	FulfillmentShipped:     {FulfillmentDelivered},
	FulfillmentDelivered:   {},
	FulfillmentCancelled:   {},
}

func (s FulfillmentStatus) CanTransition(to FulfillmentStatus) bool {
	for _, next := range fulfillmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a line-item snapshot taken at order creation. Never mutated.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order is the durable financial record materialized exactly once from a
// completed checkout session. All customer and pricing fields are copies of
// the session's snapshot, so catalog edits never rewrite order history.
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber       string             `bson:"orderNumber" json:"orderNumber"`
	CheckoutSessionID primitive.ObjectID `bson:"checkoutSessionId" json:"checkoutSessionId"`

	ShopID primitive.ObjectID `bson:"shopId" json:"shopId"`

	Customer CustomerInfo `bson:"customer" json:"customer"`
	Items    []OrderItem  `bson:"items" json:"items"`

	BillingCycle   BillingCycle `bson:"billingCycle" json:"billingCycle"`
	ProductPrice   float64      `bson:"productPrice" json:"productPrice"`
	ShippingCost   float64      `bson:"shippingCost" json:"shippingCost"`
	DiscountAmount float64      `bson:"discountAmount" json:"discountAmount"`
	TotalAmount    float64      `bson:"totalAmount" json:"totalAmount"`

	// Split breakdown: the platform keeps PlatformFee, the shop's connected
	// account is owed ShopRevenue.
	PlatformFee float64 `bson:"platformFee" json:"platformFee"`
	ShopRevenue float64 `bson:"shopRevenue" json:"shopRevenue"`

	StripePaymentIntentID string `bson:"stripePaymentIntentId,omitempty" json:"-"`
	StripeRefundID        string `bson:"stripeRefundId,omitempty" json:"-"`

	PaymentStatus     PaymentStatus     `bson:"paymentStatus" json:"paymentStatus"`
	FulfillmentStatus FulfillmentStatus `bson:"fulfillmentStatus" json:"fulfillmentStatus"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
