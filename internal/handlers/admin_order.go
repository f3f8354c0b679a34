package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/orders"
)

func ListOrders(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		result, total, err := store.List(c.Request.Context(), page, limit)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": result,
			"total":  total,
			"page":   page,
			"limit":  limit,
		})
	}
}

func GetOrder(store orders.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		order, err := store.GetByID(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

/* =========================
   FULFILLMENT TRANSITIONS
========================= */

func FulfillOrder(svc *orders.FulfillmentService) gin.HandlerFunc {
	return fulfillmentHandler("POST /admin/api/orders/:id/fulfill", svc.Fulfill)
}

func ShipOrder(svc *orders.FulfillmentService) gin.HandlerFunc {
	return fulfillmentHandler("POST /admin/api/orders/:id/ship", svc.Ship)
}

func DeliverOrder(svc *orders.FulfillmentService) gin.HandlerFunc {
	return fulfillmentHandler("POST /admin/api/orders/:id/deliver", svc.Deliver)
}

func CancelOrder(svc *orders.FulfillmentService) gin.HandlerFunc {
	return fulfillmentHandler("POST /admin/api/orders/:id/cancel", svc.Cancel)
}

func fulfillmentHandler(route string, transition func(ctx context.Context, id primitive.ObjectID) (*models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		order, err := transition(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId":           order.ID.Hex(),
			"fulfillmentStatus": order.FulfillmentStatus,
		})
	}
}

/* =========================
   REFUNDS
========================= */

func RefundOrder(svc *orders.RefundService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/orders/:id/refund"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		order, err := svc.Refund(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId":       order.ID.Hex(),
			"paymentStatus": order.PaymentStatus,
		})
	}
}

func CancelOrderRefund(svc *orders.RefundService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/orders/:id/refund/cancel"
		defer handlePanic(c, route)

		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		order, err := svc.CancelRefund(c.Request.Context(), id)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId":       order.ID.Hex(),
			"paymentStatus": order.PaymentStatus,
		})
	}
}
