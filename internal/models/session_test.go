package models

import (
	"testing"
	"time"
)

func TestSessionStatusTransitions(t *testing.T) {
	tests := []struct {
		from    SessionStatus
		to      SessionStatus
		allowed bool
	}{
		{SessionPending, SessionProcessing, true},
		{SessionPending, SessionCompleted, true},
		{SessionPending, SessionExpired, true},
		{SessionProcessing, SessionCompleted, true},
		{SessionProcessing, SessionPending, false},
		{SessionCompleted, SessionProcessing, false},
		{SessionCompleted, SessionExpired, false},
		{SessionExpired, SessionCompleted, false},
		{SessionAbandoned, SessionPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	for _, status := range []SessionStatus{SessionCompleted, SessionExpired, SessionAbandoned} {
		if !status.Terminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
	}
	for _, status := range []SessionStatus{SessionPending, SessionProcessing} {
		if status.Terminal() {
			t.Fatalf("expected %s not to be terminal", status)
		}
	}
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Now()
	session := CheckoutSession{ExpiresAt: now.Add(time.Hour)}

	if session.IsExpired(now) {
		t.Fatal("session should not be expired before the deadline")
	}
	if !session.IsExpired(now.Add(2 * time.Hour)) {
		t.Fatal("session should be expired after the deadline")
	}
}

func TestTotalConsistent(t *testing.T) {
	session := CheckoutSession{
		ProductPrice:   20,
		ShippingCost:   10,
		DiscountAmount: 5,
		TotalAmount:    25,
	}
	if !session.TotalConsistent() {
		t.Fatal("expected total to be consistent")
	}

	session.TotalAmount = 30
	if session.TotalConsistent() {
		t.Fatal("expected total mismatch to be detected")
	}
}
