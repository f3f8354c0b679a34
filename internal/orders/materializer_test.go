package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperr"
	"backend/internal/models"
)

/* =========================
   FAKES
========================= */

// fakeOrderStore mirrors the two unique constraints of the orders
// collection so the retry behaviour can be exercised without a database.
type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[primitive.ObjectID]*models.Order
	bySession map[primitive.ObjectID]primitive.ObjectID
	byNumber  map[string]primitive.ObjectID

	// forceNumberDup fails the next N inserts with ErrDuplicateNumber.
	forceNumberDup int
	insertCalls    int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:    make(map[primitive.ObjectID]*models.Order),
		bySession: make(map[primitive.ObjectID]primitive.ObjectID),
		byNumber:  make(map[string]primitive.ObjectID),
	}
}

func (f *fakeOrderStore) Insert(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if f.forceNumberDup > 0 {
		f.forceNumberDup--
		return ErrDuplicateNumber
	}
	if _, ok := f.bySession[order.CheckoutSessionID]; ok {
		return ErrDuplicateSession
	}
	if _, ok := f.byNumber[order.OrderNumber]; ok {
		return ErrDuplicateNumber
	}

	order.ID = primitive.NewObjectID()
	copied := *order
	f.orders[order.ID] = &copied
	f.bySession[order.CheckoutSessionID] = order.ID
	f.byNumber[order.OrderNumber] = order.ID
	return nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, apperr.NotFoundErr("order not found")
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) GetBySessionID(ctx context.Context, sessionID primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.bySession[sessionID]
	if !ok {
		return nil, apperr.NotFoundErr("order not found")
	}
	copied := *f.orders[id]
	return &copied, nil
}

func (f *fakeOrderStore) List(ctx context.Context, page, limit int64) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]models.Order, 0, len(f.orders))
	for _, order := range f.orders {
		result = append(result, *order)
	}
	return result, int64(len(result)), nil
}

func (f *fakeOrderStore) SetFulfillmentStatus(ctx context.Context, id primitive.ObjectID, from, to models.FulfillmentStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.FulfillmentStatus != from {
		return nil, apperr.ConflictErr("order state changed concurrently")
	}
	order.FulfillmentStatus = to
	copied := *order
	return &copied, nil
}

func (f *fakeOrderStore) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, refundID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.PaymentStatus != from {
		return nil, apperr.ConflictErr("order state changed concurrently")
	}
	order.PaymentStatus = to
	if refundID != "" {
		order.StripeRefundID = refundID
	}
	copied := *order
	return &copied, nil
}

type fakeSessionGetter struct {
	sessions map[string]*models.CheckoutSession
}

func (f *fakeSessionGetter) GetByToken(ctx context.Context, token string) (*models.CheckoutSession, error) {
	session, ok := f.sessions[token]
	if !ok {
		return nil, apperr.NotFoundErr("checkout session not found")
	}
	copied := *session
	return &copied, nil
}

func completedSession(token string) *models.CheckoutSession {
	return &models.CheckoutSession{
		ID:                    primitive.NewObjectID(),
		PublicToken:           token,
		ProductID:             primitive.NewObjectID(),
		ShopID:                primitive.NewObjectID(),
		ProductName:           "E-Book",
		Quantity:              1,
		UnitPrice:             50,
		ProductPrice:          50,
		TotalAmount:           50,
		PlatformFee:           7.50,
		StripePaymentIntentID: "pi_test",
		CurrentStep:           models.StepConfirming,
		Status:                models.SessionCompleted,
		ExpiresAt:             time.Now().Add(time.Hour),
	}
}

/* =========================
   MATERIALIZER
========================= */

func TestMaterializeExactlyOnceUnderConcurrency(t *testing.T) {
	store := newFakeOrderStore()
	sessions := &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{
		"tok": completedSession("tok"),
	}}
	m := NewMaterializer(store, sessions)

	const workers = 10
	results := make([]*models.Order, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := m.CreateOrderFromSession(context.Background(), "tok")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = order
		}(i)
	}
	wg.Wait()

	if len(store.orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(store.orders))
	}
	for i, order := range results {
		if order == nil {
			continue
		}
		if order.OrderNumber != results[0].OrderNumber {
			t.Fatalf("worker %d observed a different order number: %s vs %s", i, order.OrderNumber, results[0].OrderNumber)
		}
	}
}

func TestMaterializeReturnsExistingOrderOnReplay(t *testing.T) {
	store := newFakeOrderStore()
	sessions := &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{
		"tok": completedSession("tok"),
	}}
	m := NewMaterializer(store, sessions)

	first, err := m.CreateOrderFromSession(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.CreateOrderFromSession(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || first.OrderNumber != second.OrderNumber {
		t.Fatalf("replay produced a different order: %s vs %s", first.OrderNumber, second.OrderNumber)
	}
	if len(store.orders) != 1 {
		t.Fatalf("expected one order after replay, got %d", len(store.orders))
	}
}

func TestMaterializeRejectsIncompleteSession(t *testing.T) {
	session := completedSession("tok")
	session.Status = models.SessionProcessing

	store := newFakeOrderStore()
	m := NewMaterializer(store, &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{"tok": session}})

	_, err := m.CreateOrderFromSession(context.Background(), "tok")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if len(store.orders) != 0 {
		t.Fatal("no order should be created for an incomplete session")
	}
}

func TestMaterializeRetriesOnNumberCollision(t *testing.T) {
	store := newFakeOrderStore()
	store.forceNumberDup = 3
	sessions := &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{
		"tok": completedSession("tok"),
	}}
	m := NewMaterializer(store, sessions)

	order, err := m.CreateOrderFromSession(context.Background(), "tok")
	if err != nil {
		t.Fatalf("expected collisions to be retried, got %v", err)
	}
	if store.insertCalls != 4 {
		t.Fatalf("expected 4 insert attempts, got %d", store.insertCalls)
	}
	if order.OrderNumber == "" {
		t.Fatal("expected an order number after retries")
	}
}

func TestMaterializeFailsWhenNumberSpaceExhausted(t *testing.T) {
	store := newFakeOrderStore()
	store.forceNumberDup = 1000
	sessions := &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{
		"tok": completedSession("tok"),
	}}
	m := NewMaterializer(store, sessions)

	_, err := m.CreateOrderFromSession(context.Background(), "tok")
	if !apperr.IsKind(err, apperr.Internal) {
		t.Fatalf("expected Internal after exhausting retries, got %v", err)
	}
	if store.insertCalls != maxOrderNumberAttempts {
		t.Fatalf("expected %d attempts, got %d", maxOrderNumberAttempts, store.insertCalls)
	}
}

func TestOrderSnapshotCopiedFromSession(t *testing.T) {
	session := completedSession("tok")
	session.ShippingCost = 10
	session.TotalAmount = 60

	store := newFakeOrderStore()
	m := NewMaterializer(store, &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{"tok": session}})

	order, err := m.CreateOrderFromSession(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}

	if order.CheckoutSessionID != session.ID {
		t.Fatal("order not linked to its session")
	}
	if order.TotalAmount != 60 || order.ShopRevenue != 60 {
		t.Fatalf("snapshot mismatch: total=%v revenue=%v", order.TotalAmount, order.ShopRevenue)
	}
	if order.PaymentStatus != models.PaymentPaid || order.FulfillmentStatus != models.FulfillmentUnfulfilled {
		t.Fatalf("unexpected initial statuses: %s/%s", order.PaymentStatus, order.FulfillmentStatus)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != session.ProductID {
		t.Fatal("order items not copied from session")
	}
	if len(order.OrderNumber) != 5 || order.OrderNumber[0] != '#' {
		t.Fatalf("unexpected order number format: %q", order.OrderNumber)
	}
}

func TestShopRevenueComputedInCentsSpace(t *testing.T) {
	// 19.99 + 5.99 summed as floats drifts to 25.980000000000004; the order
	// must persist exactly 25.98.
	session := completedSession("tok")
	session.UnitPrice = 19.99
	session.ProductPrice = 19.99
	session.ShippingCost = 5.99
	session.TotalAmount = 25.98

	store := newFakeOrderStore()
	m := NewMaterializer(store, &fakeSessionGetter{sessions: map[string]*models.CheckoutSession{"tok": session}})

	order, err := m.CreateOrderFromSession(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if order.ShopRevenue != 25.98 {
		t.Fatalf("shop revenue = %v, want exactly 25.98", order.ShopRevenue)
	}
}

/* =========================
   FULFILLMENT
========================= */

func seedOrder(t *testing.T, store *fakeOrderStore) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:           "#0001",
		CheckoutSessionID:     primitive.NewObjectID(),
		StripePaymentIntentID: "pi_test",
		PaymentStatus:         models.PaymentPaid,
		FulfillmentStatus:     models.FulfillmentUnfulfilled,
	}
	if err := store.Insert(context.Background(), order); err != nil {
		t.Fatal(err)
	}
	return order
}

func TestFulfillmentLifecycle(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	svc := NewFulfillmentService(store)
	ctx := context.Background()

	steps := []struct {
		name string
		call func() (*models.Order, error)
		want models.FulfillmentStatus
	}{
		{"fulfill", func() (*models.Order, error) { return svc.Fulfill(ctx, order.ID) }, models.FulfillmentFulfilled},
		{"ship", func() (*models.Order, error) { return svc.Ship(ctx, order.ID) }, models.FulfillmentShipped},
		{"deliver", func() (*models.Order, error) { return svc.Deliver(ctx, order.ID) }, models.FulfillmentDelivered},
	}
	for _, step := range steps {
		updated, err := step.call()
		if err != nil {
			t.Fatalf("%s failed: %v", step.name, err)
		}
		if updated.FulfillmentStatus != step.want {
			t.Fatalf("%s: status = %s, want %s", step.name, updated.FulfillmentStatus, step.want)
		}
	}
}

func TestCancelRejectedAfterShipping(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	svc := NewFulfillmentService(store)
	ctx := context.Background()

	if _, err := svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ship(ctx, order.ID); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Cancel(ctx, order.ID)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestShipRequiresFulfilledFirst(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(t, store)
	svc := NewFulfillmentService(store)

	_, err := svc.Ship(context.Background(), order.ID)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}
