package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"io.realgram.engine/internal/db"
	firebaseutil "io.realgram.engine/internal/firebase"
	"io.realgram.engine/internal/handlers"
	"io.realgram.engine/internal/middleware"
	"io.realgram.engine/internal/notify"
	"io.realgram.engine/internal/store"
	"io.realgram.engine/internal/sweeps"
	"io.realgram.engine/internal/triggers"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	// Initialize Firebase
	firebaseApp, err := firebaseutil.InitFirebase()
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	firestoreClient, err := firebaseutil.GetFirestoreClient(firebaseApp)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer firestoreClient.Close()

	messagingClient, err := firebaseutil.GetMessagingClient(firebaseApp)
	if err != nil {
		log.Fatalf("Failed to initialize FCM: %v", err)
	}

	authClient, err := firebaseutil.GetAuthClient(firebaseApp)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	// Initialize PostgreSQL
	postgresDB, err := db.InitPostgres()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL: %v", err)
	}
	defer postgresDB.Close()

	// Initialize Redis
	redisClient, err := db.InitRedis()
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer redisClient.Close()

	// Core components
	documentStore := store.NewFirestoreStore(firestoreClient)
	transport := notify.NewFCMTransport(messagingClient)
	resolver := notify.NewResolver(documentStore, redisClient, logger)
	dispatcher := notify.NewDispatcher(
		transport,
		notify.NewRedisSendMarker(redisClient),
		notify.NewPostgresDeliveryLog(postgresDB),
		logger,
	)

	// Trigger router fed by the store change feed
	router := triggers.NewRouter(logger)
	triggers.NewTriggerHandlers(documentStore, resolver, dispatcher, logger).RegisterAll(router)

	rootCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()

	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	subscriptionID := getEnvOrDefault("CHANGE_FEED_SUBSCRIPTION", "firestore-changes-sub")
	pubsubClient, err := pubsub.NewClient(rootCtx, projectID)
	if err != nil {
		log.Fatalf("Failed to initialize Pub/Sub: %v", err)
	}
	defer pubsubClient.Close()

	feed := triggers.NewFeedConsumer(pubsubClient, subscriptionID, router, logger)
	go func() {
		if err := feed.Start(rootCtx); err != nil {
			logger.Errorw("change feed consumer stopped", "error", err)
		}
	}()

	// Periodic sweeps
	sweeper := sweeps.NewSweeper(documentStore, transport, dispatcher, logger)
	scheduler := sweeps.NewScheduler(sweeper, logger)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start sweep scheduler: %v", err)
	}

	// HTTP surface
	webhookSecret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatalf("RAZORPAY_WEBHOOK_SECRET is required")
	}
	paymentLedger := handlers.NewPostgresProcessedLedger(postgresDB, redisClient, logger)
	paymentWebhook := handlers.NewPaymentWebhookHandler(documentStore, paymentLedger, webhookSecret, logger)
	nearbyHandler := handlers.NewNearbyHandler(documentStore, resolver, dispatcher, logger)
	propertyHandler := handlers.NewPropertyHandler(documentStore, logger)

	ginRouter := gin.New()
	ginRouter.Use(middleware.RequestIDMiddleware())
	ginRouter.Use(middleware.RequestLoggingMiddleware(logger))
	ginRouter.Use(middleware.RecoveryMiddleware(logger))

	// Webhook checks the method itself so non-POST gets 405, not 404
	ginRouter.Any("/webhooks/payments", paymentWebhook.Handle)

	v1 := ginRouter.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(authClient))
		{
			protected.POST("/notifications/nearby", nearbyHandler.Nearby)
			protected.POST("/properties/increment-views", propertyHandler.IncrementViews)
		}
	}

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + getEnvOrDefault("PORT", "9091"),
		Handler: ginRouter,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop the change feed and let running sweeps finish
	stopFeed()
	scheduler.Stop()

	// Give a 5 second timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
