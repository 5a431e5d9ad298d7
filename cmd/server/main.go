package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/realtime"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
	"github.com/driftlinehq/driftline/backend/internal/router"
	"github.com/driftlinehq/driftline/backend/pkg/config"
	"github.com/driftlinehq/driftline/backend/pkg/firebase"
	"github.com/driftlinehq/driftline/backend/validators"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	logger := notify.NewStdLogger()
	hub := realtime.NewHub(logger)

	// Broadcast broker: Redis pub/sub when configured, in-process otherwise
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var broker notify.Broker
	if cfg.RedisURL != "" {
		redisBroker, err := realtime.NewRedisBroker(cfg.RedisURL, hub, logger)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisBroker.Close()
		go redisBroker.Run(ctx)
		broker = redisBroker
		log.Println("Redis broadcast broker configured.")
	} else {
		broker = realtime.NewLocalBroker(hub)
		log.Println("In-process broadcast broker configured.")
	}

	// Optional mobile push sink via Firebase Cloud Messaging
	var push notify.Sink
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		deviceTokenRepo := repositories.NewPostgresDeviceTokenRepository(db.Postgres)
		push = notify.NewPushSink(notify.NewFCMSender(firebaseApp.MessagingClient), deviceTokenRepo, logger)
		log.Println("Firebase push sink configured.")
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Validator
	e.Validator = validators.NewValidator()

	// Setup routes and the notification pipeline
	dispatcher, err := router.SetupRoutes(e, db.Postgres, db.Mongo, broker, hub, push, cfg)
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}
	dispatcher.Start()
	defer dispatcher.Stop()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
