package models

import "testing"

func TestFulfillmentTransitions(t *testing.T) {
	tests := []struct {
		from    FulfillmentStatus
		to      FulfillmentStatus
		allowed bool
	}{
		{FulfillmentUnfulfilled, FulfillmentFulfilled, true},
		{FulfillmentUnfulfilled, FulfillmentCancelled, true},
		{FulfillmentUnfulfilled, FulfillmentShipped, false},
		{FulfillmentFulfilled, FulfillmentShipped, true},
		{FulfillmentFulfilled, FulfillmentCancelled, true},
		{FulfillmentShipped, FulfillmentDelivered, true},
		{FulfillmentShipped, FulfillmentCancelled, false},
		{FulfillmentDelivered, FulfillmentCancelled, false},
		{FulfillmentCancelled, FulfillmentFulfilled, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentFailed, PaymentPaid, false},
		{PaymentRefunded, PaymentPaid, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}
