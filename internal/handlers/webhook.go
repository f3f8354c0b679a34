package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/apperr"
	"backend/internal/payments"
)

// StripeWebhook receives signed gateway events. A bad signature is a hard
// 400 — never a 200 — so the gateway does not mark the delivery as accepted.
// Processing failures return 500 and lean on the gateway's redelivery.
func StripeWebhook(processor *payments.WebhookProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/webhook"
		defer handlePanic(c, route)

		payload, err := c.GetRawData()
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable payload")
			return
		}

		eventType, err := processor.Process(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			if apperr.IsKind(err, apperr.Unauthorized) {
				respondWithError(c, http.StatusBadRequest, route, "signature verification failed")
				return
			}
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"received": true,
			"type":     eventType,
		})
	}
}
