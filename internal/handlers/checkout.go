package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/checkout"
	"backend/internal/models"
	"backend/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

type createSessionRequest struct {
	ProductID    string `json:"productId" binding:"required"`
	BillingCycle string `json:"billingCycle"`
	Quantity     int    `json:"quantity"`
}

type saveInformationRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Address2   string `json:"address2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type selectShippingRequest struct {
	ShippingRateID string `json:"shippingRateId" binding:"required"`
}

type createPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

type createPaymentIntentRequest struct {
	SessionID       string `json:"sessionId" binding:"required"`
	PaymentMethodID string `json:"paymentMethodId"`
}

/* =========================
   CHECKOUT FLOW
========================= */

func CreateCheckoutSession(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/create-session"
		defer handlePanic(c, route)

		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		result, err := svc.CreateSession(c.Request.Context(), checkout.CreateSessionInput{
			ProductID:    req.ProductID,
			BillingCycle: req.BillingCycle,
			Quantity:     req.Quantity,
		})
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"sessionId":   result.Session.PublicToken,
			"checkoutUrl": result.CheckoutURL,
			"expiresAt":   result.Session.ExpiresAt,
		})
	}
}

func GetCheckoutSession(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/sessions/:sessionId"
		defer handlePanic(c, route)

		session, err := svc.GetSession(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func SaveInformation(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/sessions/:sessionId/information"
		defer handlePanic(c, route)

		var req saveInformationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		session, err := svc.SaveInformation(c.Request.Context(), c.Param("sessionId"), models.CustomerInfo{
			Email:      req.Email,
			Name:       req.Name,
			Phone:      req.Phone,
			Address:    req.Address,
			Address2:   req.Address2,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		})
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"nextStep":         session.CurrentStep,
			"requiresShipping": session.RequiresShipping,
		})
	}
}

func SelectShipping(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/sessions/:sessionId/shipping"
		defer handlePanic(c, route)

		var req selectShippingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		session, err := svc.SelectShipping(c.Request.Context(), c.Param("sessionId"), req.ShippingRateID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"shippingCost": session.ShippingCost,
			"totalAmount":  session.TotalAmount,
			"nextStep":     session.CurrentStep,
		})
	}
}

func CreatePayment(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/sessions/:sessionId/payment"
		defer handlePanic(c, route)

		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		result, err := svc.CreatePayment(c.Request.Context(), c.Param("sessionId"), req.PaymentMethod)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func CreatePaymentIntent(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/create-payment-intent"
		defer handlePanic(c, route)

		var req createPaymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		result, err := svc.CreatePaymentIntent(c.Request.Context(), req.SessionID, req.PaymentMethodID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"clientSecret":    result.ClientSecret,
			"paymentIntentId": result.PaymentIntentID,
		})
	}
}

/* =========================
   ORDER CONFIRMATION
========================= */

// ConfirmOrder is the synchronous poll-based path. It shares the
// materializer's idempotency guarantee with the webhook path, so however the
// race between them falls, both observe the same order.
func ConfirmOrder(materializer *orders.Materializer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/orders/confirm"
		defer handlePanic(c, route)

		token := c.Query("session_id")
		if token == "" {
			respondWithError(c, http.StatusBadRequest, route, "session_id is required")
			return
		}

		order, err := materializer.CreateOrderFromSession(c.Request.Context(), token)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId":           order.ID.Hex(),
			"orderNumber":       order.OrderNumber,
			"totalAmount":       order.TotalAmount,
			"paymentStatus":     order.PaymentStatus,
			"fulfillmentStatus": order.FulfillmentStatus,
		})
	}
}
