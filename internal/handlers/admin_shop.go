package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/checkout"
	"backend/internal/shops"
)

func CreateConnectAccount(svc *shops.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/shops/:id/connect-account"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		shop, err := svc.CreateConnectAccount(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"shopId":          shop.ID.Hex(),
			"stripeAccountId": shop.StripeAccountID,
		})
	}
}

func CreateOnboardingLink(svc *shops.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/shops/:id/onboarding-link"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		url, err := svc.CreateOnboardingLink(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

// ExpireCheckoutSession forcibly expires a session (administrative).
func ExpireCheckoutSession(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/sessions/:sessionId/expire"
		defer handlePanic(c, route)

		session, err := svc.ExpireSession(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"sessionId": session.PublicToken,
			"status":    session.Status,
		})
	}
}
