package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"backend/internal/checkout"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/orders"
	"backend/internal/payments"
	"backend/internal/shops"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureSessionIndexes(db); err != nil {
		log.Printf("session index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		// Exactly-once order creation depends on these constraints.
		log.Fatal("order indexes are required: ", err)
	}
	if err := database.EnsureShopIndexes(db); err != nil {
		log.Printf("shop index warning: %v", err)
	}

	var dedup payments.EventCache
	if config.AppEnv.RedisAddr != "" {
		dedup = redis.NewClient(&redis.Options{Addr: config.AppEnv.RedisAddr})
		log.Println("Redis webhook dedup enabled:", config.AppEnv.RedisAddr)
	}

	gateway := payments.NewStripeGateway(config.AppEnv.StripeSecretKey, config.AppEnv.Currency)

	sessionStore := checkout.NewMongoStore(db)
	orderStore := orders.NewMongoStore(db)

	checkoutSvc := checkout.NewService(sessionStore, checkout.NewMongoCatalog(db), gateway, checkout.Options{
		BaseURL:            config.AppEnv.BaseURL,
		SessionTTL:         config.AppEnv.CheckoutSessionTTL,
		PlatformFeePercent: config.AppEnv.PlatformFeePercent,
		Currency:           config.AppEnv.Currency,
	})
	materializer := orders.NewMaterializer(orderStore, sessionStore)
	fulfillmentSvc := orders.NewFulfillmentService(orderStore)
	refundSvc := orders.NewRefundService(orderStore, gateway)
	shopSvc := shops.NewService(db, gateway, config.AppEnv.BaseURL)

	webhookProcessor := payments.NewWebhookProcessor(
		config.AppEnv.StripeWebhookSecret,
		checkoutSvc,
		materializer,
		shopSvc,
		dedup,
	)

	checkoutSvc.StartExpirySweep(context.Background(), time.Hour)

	r := gin.Default()

	r.POST("/checkout/create-session", handlers.CreateCheckoutSession(checkoutSvc))
	r.GET("/checkout/sessions/:sessionId", handlers.GetCheckoutSession(checkoutSvc))
	r.POST("/checkout/sessions/:sessionId/information", handlers.SaveInformation(checkoutSvc))
	r.POST("/checkout/sessions/:sessionId/shipping", handlers.SelectShipping(checkoutSvc))
	r.POST("/checkout/sessions/:sessionId/payment", handlers.CreatePayment(checkoutSvc))
	r.POST("/checkout/create-payment-intent", handlers.CreatePaymentIntent(checkoutSvc))
	r.GET("/checkout/orders/confirm", handlers.ConfirmOrder(materializer))

	r.POST("/payments/webhook", handlers.StripeWebhook(webhookProcessor))

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/orders", handlers.ListOrders(orderStore))
		admin.GET("/orders/:id", handlers.GetOrder(orderStore))
		admin.POST("/orders/:id/fulfill", handlers.FulfillOrder(fulfillmentSvc))
		admin.POST("/orders/:id/ship", handlers.ShipOrder(fulfillmentSvc))
		admin.POST("/orders/:id/deliver", handlers.DeliverOrder(fulfillmentSvc))
		admin.POST("/orders/:id/cancel", handlers.CancelOrder(fulfillmentSvc))
		admin.POST("/orders/:id/refund", handlers.RefundOrder(refundSvc))
		admin.POST("/orders/:id/refund/cancel", handlers.CancelOrderRefund(refundSvc))

		admin.POST("/sessions/:sessionId/expire", handlers.ExpireCheckoutSession(checkoutSvc))

		admin.POST("/shops/:id/connect-account", handlers.CreateConnectAccount(shopSvc))
		admin.POST("/shops/:id/onboarding-link", handlers.CreateOnboardingLink(shopSvc))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
