package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"backend/internal/apperr"
)

// PaymentIntentRequest describes a charge in minor units. When
// ConnectedAccountID is set the charge is split: the platform keeps
// ApplicationFeeCents and the remainder is transferred to the connected
// account. When it is empty the platform account absorbs the full charge.
type PaymentIntentRequest struct {
	AmountCents         int64
	ApplicationFeeCents int64
	Currency            string
	PaymentMethodID     string
	ConnectedAccountID  string
	SessionToken        string
	Confirm             bool
}

type PaymentIntentResult struct {
	ID           string
	ClientSecret string
	Status       string
}

// CheckoutSessionRequest describes a hosted checkout page. Product, shipping
// and platform fee are rendered as separate line items.
type CheckoutSessionRequest struct {
	ProductName        string
	UnitAmountCents    int64
	Quantity           int64
	ShippingCents      int64
	PlatformFeeCents   int64
	Currency           string
	ConnectedAccountID string
	SessionToken       string
	SuccessURL         string
	CancelURL          string
}

type CheckoutSessionResult struct {
	ID  string
	URL string
}

// Gateway is the only boundary that talks to the payment provider. The rest
// of the system sees cents, a currency and correlation ids.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResult, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSessionResult, error)
	CreateRefund(ctx context.Context, paymentIntentID string) (string, error)
	CancelRefund(ctx context.Context, refundID string) error
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}

// StripeGateway holds only configuration and the API client. It is built
// once at startup and safe for concurrent use.
type StripeGateway struct {
	api      *client.API
	currency string
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	return &StripeGateway{
		api:      client.New(secretKey, nil),
		currency: currency,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context:        ctx,
			IdempotencyKey: stripe.String(fmt.Sprintf("pi:%s:%d", req.SessionToken, req.AmountCents)),
		},
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddMetadata("checkout_session_token", req.SessionToken)

	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	if req.Confirm {
		params.Confirm = stripe.Bool(true)
	}
	if req.ConnectedAccountID != "" {
		params.ApplicationFeeAmount = stripe.Int64(req.ApplicationFeeCents)
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.ConnectedAccountID),
		}
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, normalizeStripeErr(err)
	}

	return &PaymentIntentResult{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSessionResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	lineItems := []*stripe.CheckoutSessionLineItemParams{
		{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(req.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ProductName),
				},
			},
			Quantity: stripe.Int64(quantity),
		},
	}
	if req.ShippingCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(req.ShippingCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}
	if req.PlatformFeeCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(req.PlatformFeeCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Platform Fee"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.AddMetadata("checkout_session_token", req.SessionToken)

	if req.ConnectedAccountID != "" {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.PlatformFeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.ConnectedAccountID),
			},
			Metadata: map[string]string{"checkout_session_token": req.SessionToken},
		}
	}

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, normalizeStripeErr(err)
	}

	return &CheckoutSessionResult{ID: cs.ID, URL: cs.URL}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string) (string, error) {
	refund, err := g.api.Refunds.New(&stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(paymentIntentID),
	})
	if err != nil {
		return "", normalizeStripeErr(err)
	}
	return refund.ID, nil
}

func (g *StripeGateway) CancelRefund(ctx context.Context, refundID string) error {
	_, err := g.api.Refunds.Cancel(refundID, &stripe.RefundCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return normalizeStripeErr(err)
	}
	return nil
}

func (g *StripeGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	account, err := g.api.Accounts.New(&stripe.AccountParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String(string(stripe.AccountTypeExpress)),
		Email:  stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	})
	if err != nil {
		return "", normalizeStripeErr(err)
	}
	return account.ID, nil
}

func (g *StripeGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	link, err := g.api.AccountLinks.New(&stripe.AccountLinkParams{
		Params:     stripe.Params{Context: ctx},
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return "", normalizeStripeErr(err)
	}
	return link.URL, nil
}

// normalizeStripeErr keeps gateway detail out of client responses. The
// wrapped error still reaches the logs.
func normalizeStripeErr(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return apperr.GatewayErr(fmt.Errorf("stripe %s: %s", stripeErr.Code, stripeErr.Msg))
	}
	return apperr.GatewayErr(err)
}
