package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/payments"
	"backend/internal/pricing"
)

// Options carries the checkout configuration resolved at startup.
type Options struct {
	BaseURL            string
	SessionTTL         time.Duration
	PlatformFeePercent float64
	Currency           string
}

// Service owns the checkout session state machine:
// create → collect info → select shipping → pay → complete/expire/abandon.
type Service struct {
	store   Store
	catalog Catalog
	gateway payments.Gateway
	opts    Options
}

func NewService(store Store, catalog Catalog, gateway payments.Gateway, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Service{store: store, catalog: catalog, gateway: gateway, opts: opts}
}

type CreateSessionInput struct {
	ProductID    string
	BillingCycle string
	Quantity     int
}

type CreateSessionResult struct {
	Session     *models.CheckoutSession
	CheckoutURL string
}

func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionResult, error) {
	productID, err := primitive.ObjectIDFromHex(in.ProductID)
	if err != nil {
		return nil, apperr.InvalidErr("invalid productId")
	}

	quantity := in.Quantity
	if quantity < 1 {
		quantity = 1
	}
	cycle := models.BillingCycle(in.BillingCycle)
	if cycle == "" {
		cycle = models.CycleOneTime
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperr.NotFoundErr("product not found")
	}

	shop, err := s.catalog.GetShop(ctx, product.ShopID)
	if err != nil {
		return nil, err
	}
	if !shop.CanAcceptPayments() {
		return nil, apperr.InvalidErr("shop cannot accept payments")
	}

	unitPrice := pricing.ProductPrice(product, cycle)
	lineTotal := lineAmount(unitPrice, quantity)

	now := time.Now()
	session := &models.CheckoutSession{
		PublicToken:      uuid.NewString(),
		ProductID:        product.ID,
		ShopID:           shop.ID,
		BillingCycle:     cycle,
		Quantity:         quantity,
		ProductName:      product.Name,
		UnitPrice:        unitPrice,
		ProductPrice:     lineTotal,
		TotalAmount:      lineTotal,
		RequiresShipping: product.RequiresShipping,
		CurrentStep:      models.StepInformation,
		Status:           models.SessionPending,
		ExpiresAt:        now.Add(s.opts.SessionTTL),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Insert(ctx, session); err != nil {
		return nil, err
	}

	return &CreateSessionResult{
		Session:     session,
		CheckoutURL: fmt.Sprintf("%s/checkout/%s", s.opts.BaseURL, session.PublicToken),
	}, nil
}

// GetSession returns the session view. Reads of expired sessions are
// rejected here because the public endpoint treats expiry as a dead link;
// audit access goes through the store directly.
func (s *Service) GetSession(ctx context.Context, token string) (*models.CheckoutSession, error) {
	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted && session.IsExpired(time.Now()) {
		return nil, apperr.ExpiredErr("checkout session has expired")
	}
	return session, nil
}

// guardMutable applies the validation order every step handler shares:
// expiry first, then terminal status. Step preconditions come after, in the
// individual operations.
func (s *Service) guardMutable(session *models.CheckoutSession, now time.Time) error {
	if session.IsExpired(now) || session.Status == models.SessionExpired {
		return apperr.ExpiredErr("checkout session has expired")
	}
	if session.Status == models.SessionCompleted {
		return apperr.InvalidStateErr("checkout session is already completed")
	}
	if session.Status.Terminal() {
		return apperr.InvalidStateErr("checkout session was abandoned")
	}
	return nil
}

func (s *Service) SaveInformation(ctx context.Context, token string, info models.CustomerInfo) (*models.CheckoutSession, error) {
	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.guardMutable(session, time.Now()); err != nil {
		return nil, err
	}

	// Digital goods skip the shipping step entirely.
	nextStep := models.StepPayment
	if session.RequiresShipping {
		nextStep = models.StepShipping
	}

	updated, err := s.store.SetInformation(ctx, token, info, nextStep)
	if err != nil {
		return nil, err
	}
	s.checkTotals(updated, "information")
	return updated, nil
}

func (s *Service) SelectShipping(ctx context.Context, token, rateID string) (*models.CheckoutSession, error) {
	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.guardMutable(session, time.Now()); err != nil {
		return nil, err
	}
	if !session.RequiresShipping {
		return nil, apperr.InvalidStateErr("product does not require shipping")
	}
	if session.CurrentStep < models.StepShipping {
		return nil, apperr.InvalidStateErr("complete the information step first")
	}

	rate, err := s.resolveShippingRate(ctx, session.ShopID, rateID)
	if err != nil {
		return nil, err
	}

	total := totalFromComponents(session.ProductPrice, rate.Amount, session.DiscountAmount)
	updated, err := s.store.SetShipping(ctx, token, rate.ID, rate.Amount, total)
	if err != nil {
		return nil, err
	}
	s.checkTotals(updated, "shipping")
	return updated, nil
}

// resolveShippingRate accepts the well-known default identifiers as well as
// shop-configured rates; both resolve to the same shape.
func (s *Service) resolveShippingRate(ctx context.Context, shopID primitive.ObjectID, rateID string) (*models.ShippingRate, error) {
	if rate, ok := models.DefaultShippingRates[rateID]; ok {
		return &rate, nil
	}
	return s.catalog.GetShippingRate(ctx, shopID, rateID)
}

type PaymentResult struct {
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	RedirectURL     string `json:"redirectUrl,omitempty"`
	AmountCents     int64  `json:"amountCents"`
	Currency        string `json:"currency"`
}

// CreatePayment starts a payment attempt for the session. "card" creates a
// payment intent the client confirms with the returned client secret; any
// hosted method returns a redirect URL to the gateway's checkout page.
func (s *Service) CreatePayment(ctx context.Context, token, method string) (*PaymentResult, error) {
	session, breakdown, shop, err := s.preparePayment(ctx, token)
	if err != nil {
		return nil, err
	}

	if method == "hosted" || method == "checkout" {
		return s.createHostedPayment(ctx, session, breakdown, shop)
	}
	return s.createIntentPayment(ctx, session, breakdown, shop, "", false)
}

// CreatePaymentIntent creates and confirms an intent for a specific payment
// method id (the poll-based client flow).
func (s *Service) CreatePaymentIntent(ctx context.Context, token, paymentMethodID string) (*PaymentResult, error) {
	session, breakdown, shop, err := s.preparePayment(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.createIntentPayment(ctx, session, breakdown, shop, paymentMethodID, paymentMethodID != "")
}

// preparePayment runs the shared payment preconditions and computes the
// money breakdown. Payment requires the information step to be done; the
// session may still be on the shipping step for physical goods.
func (s *Service) preparePayment(ctx context.Context, token string) (*models.CheckoutSession, pricing.Breakdown, *models.Shop, error) {
	var zero pricing.Breakdown

	session, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, zero, nil, err
	}
	if err := s.guardMutable(session, time.Now()); err != nil {
		return nil, zero, nil, err
	}
	if session.CurrentStep < models.StepShipping {
		return nil, zero, nil, apperr.InvalidStateErr("complete the information step first")
	}

	shop, err := s.catalog.GetShop(ctx, session.ShopID)
	if err != nil {
		return nil, zero, nil, err
	}

	feePercent := s.opts.PlatformFeePercent
	if shop.PlatformFeePercent > 0 {
		feePercent = shop.PlatformFeePercent
	}

	return session, pricing.ComputeBreakdown(session.ProductPrice, session.ShippingCost, feePercent), shop, nil
}

func (s *Service) createIntentPayment(ctx context.Context, session *models.CheckoutSession, breakdown pricing.Breakdown, shop *models.Shop, paymentMethodID string, confirm bool) (*PaymentResult, error) {
	req := payments.PaymentIntentRequest{
		AmountCents:     breakdown.TotalCents,
		Currency:        s.opts.Currency,
		PaymentMethodID: paymentMethodID,
		SessionToken:    session.PublicToken,
		Confirm:         confirm,
	}
	if shop.CanSplitPayments() {
		req.ConnectedAccountID = shop.StripeAccountID
		req.ApplicationFeeCents = breakdown.PlatformFeeCents
	}

	result, err := s.gateway.CreatePaymentIntent(ctx, req)
	if err != nil {
		// No partial charge is recorded without gateway confirmation.
		return nil, err
	}

	corr := GatewayCorrelation{PaymentIntentID: result.ID, AccountID: req.ConnectedAccountID}
	if _, err := s.store.SetPaymentPending(ctx, session.PublicToken, corr, breakdown.PlatformFee()); err != nil {
		return nil, err
	}

	return &PaymentResult{
		PaymentIntentID: result.ID,
		ClientSecret:    result.ClientSecret,
		AmountCents:     breakdown.TotalCents,
		Currency:        s.opts.Currency,
	}, nil
}

func (s *Service) createHostedPayment(ctx context.Context, session *models.CheckoutSession, breakdown pricing.Breakdown, shop *models.Shop) (*PaymentResult, error) {
	req := payments.CheckoutSessionRequest{
		ProductName:      session.ProductName,
		UnitAmountCents:  pricing.Cents(session.UnitPrice),
		Quantity:         int64(session.Quantity),
		ShippingCents:    breakdown.ShippingCents,
		PlatformFeeCents: breakdown.PlatformFeeCents,
		Currency:         s.opts.Currency,
		SessionToken:     session.PublicToken,
		SuccessURL:       fmt.Sprintf("%s/checkout/orders/confirm?session_id=%s", s.opts.BaseURL, session.PublicToken),
		CancelURL:        fmt.Sprintf("%s/checkout/%s", s.opts.BaseURL, session.PublicToken),
	}
	if shop.CanSplitPayments() {
		req.ConnectedAccountID = shop.StripeAccountID
	}

	result, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}

	corr := GatewayCorrelation{CheckoutSessionID: result.ID, AccountID: req.ConnectedAccountID}
	if _, err := s.store.SetPaymentPending(ctx, session.PublicToken, corr, breakdown.PlatformFee()); err != nil {
		return nil, err
	}

	return &PaymentResult{
		RedirectURL: result.URL,
		AmountCents: breakdown.TotalCents,
		Currency:    s.opts.Currency,
	}, nil
}

// ExpireSession is the administrative force-expire.
func (s *Service) ExpireSession(ctx context.Context, token string) (*models.CheckoutSession, error) {
	return s.store.Expire(ctx, token)
}

// CompleteByPaymentIntent implements payments.SessionCompleter. Re-applying
// the completion for an already-completed session is a no-op, not an error.
func (s *Service) CompleteByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.CheckoutSession, error) {
	session, applied, err := s.store.CompleteByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if applied {
		log.Printf("[CHECKOUT] [INFO] session %s completed via payment intent %s", session.PublicToken, paymentIntentID)
	}
	return session, nil
}

func (s *Service) CompleteByCheckoutSession(ctx context.Context, checkoutSessionID string) (*models.CheckoutSession, error) {
	session, applied, err := s.store.CompleteByCheckoutSession(ctx, checkoutSessionID)
	if err != nil {
		return nil, err
	}
	if applied {
		log.Printf("[CHECKOUT] [INFO] session %s completed via hosted checkout %s", session.PublicToken, checkoutSessionID)
	}
	return session, nil
}

func (s *Service) RecordPaymentFailure(ctx context.Context, paymentIntentID, reason string) error {
	log.Printf("[CHECKOUT] [WARN] payment failed for intent %s: %s", paymentIntentID, reason)
	return s.store.RecordPaymentFailure(ctx, paymentIntentID, reason)
}

// StartExpirySweep periodically marks long-pending sessions past their
// deadline. Advisory cleanup for reporting; expired sessions are rejected at
// access time regardless.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.MarkExpiredBefore(ctx, time.Now())
				if err != nil {
					log.Printf("[CHECKOUT] [WARN] expiry sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[CHECKOUT] [INFO] expiry sweep marked %d sessions", n)
				}
			}
		}
	}()
}

func (s *Service) checkTotals(session *models.CheckoutSession, step string) {
	if !session.TotalConsistent() {
		log.Printf("[CHECKOUT] [ERROR] total mismatch after %s step for session %s: total=%.2f product=%.2f shipping=%.2f discount=%.2f",
			step, session.PublicToken, session.TotalAmount, session.ProductPrice, session.ShippingCost, session.DiscountAmount)
	}
}

func lineAmount(unitPrice float64, quantity int) float64 {
	return pricing.FromCents(pricing.Cents(unitPrice) * int64(quantity))
}

func totalFromComponents(productPrice, shippingCost, discount float64) float64 {
	return pricing.FromCents(pricing.Cents(productPrice) + pricing.Cents(shippingCost) - pricing.Cents(discount))
}
