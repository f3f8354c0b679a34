package orders

import (
	"context"
	"testing"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/payments"
)

type fakeRefundGateway struct {
	refunds    int
	cancels    int
	lastIntent string
	lastRefund string
	refundErr  error
}

func (f *fakeRefundGateway) CreatePaymentIntent(ctx context.Context, req payments.PaymentIntentRequest) (*payments.PaymentIntentResult, error) {
	return nil, nil
}

func (f *fakeRefundGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (*payments.CheckoutSessionResult, error) {
	return nil, nil
}

func (f *fakeRefundGateway) CreateRefund(ctx context.Context, paymentIntentID string) (string, error) {
	if f.refundErr != nil {
		return "", f.refundErr
	}
	f.refunds++
	f.lastIntent = paymentIntentID
	return "re_test", nil
}

func (f *fakeRefundGateway) CancelRefund(ctx context.Context, refundID string) error {
	f.cancels++
	f.lastRefund = refundID
	return nil
}

func (f *fakeRefundGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	return "acct_test", nil
}

func (f *fakeRefundGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return "https://connect.example.com/onboard", nil
}

func TestRefundPaidOrder(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	gateway := &fakeRefundGateway{}
	svc := NewRefundService(store, gateway)

	updated, err := svc.Refund(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.PaymentStatus != models.PaymentRefunded {
		t.Fatalf("payment status = %s, want %s", updated.PaymentStatus, models.PaymentRefunded)
	}
	if updated.StripeRefundID != "re_test" {
		t.Fatalf("refund id not recorded: %q", updated.StripeRefundID)
	}
	if gateway.lastIntent != "pi_test" {
		t.Fatalf("gateway refunded the wrong intent: %q", gateway.lastIntent)
	}
}

func TestRefundRejectsAlreadyRefundedOrder(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	gateway := &fakeRefundGateway{}
	svc := NewRefundService(store, gateway)

	if _, err := svc.Refund(context.Background(), order.ID); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Refund(context.Background(), order.ID)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if gateway.refunds != 1 {
		t.Fatalf("gateway should be hit once, got %d", gateway.refunds)
	}
}

func TestRefundRejectsOrderWithoutGatewayPayment(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	store.orders[order.ID].StripePaymentIntentID = ""
	svc := NewRefundService(store, &fakeRefundGateway{})

	_, err := svc.Refund(context.Background(), order.ID)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestRefundGatewayFailureLeavesStatusUntouched(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	gateway := &fakeRefundGateway{refundErr: apperr.GatewayErr(nil)}
	svc := NewRefundService(store, gateway)

	_, err := svc.Refund(context.Background(), order.ID)
	if !apperr.IsKind(err, apperr.Gateway) {
		t.Fatalf("expected Gateway error, got %v", err)
	}

	current, _ := store.GetByID(context.Background(), order.ID)
	if current.PaymentStatus != models.PaymentPaid {
		t.Fatalf("status should stay paid on gateway failure, got %s", current.PaymentStatus)
	}
}

func TestCancelRefundRestoresPaid(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	gateway := &fakeRefundGateway{}
	svc := NewRefundService(store, gateway)

	if _, err := svc.Refund(context.Background(), order.ID); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.CancelRefund(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.PaymentStatus != models.PaymentPaid {
		t.Fatalf("payment status = %s, want %s", updated.PaymentStatus, models.PaymentPaid)
	}
	if gateway.lastRefund != "re_test" {
		t.Fatalf("gateway cancelled the wrong refund: %q", gateway.lastRefund)
	}
}

func TestCancelRefundRequiresRefundedOrder(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	svc := NewRefundService(store, &fakeRefundGateway{})

	_, err := svc.CancelRefund(context.Background(), order.ID)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}
