package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/driftlinehq/driftline/backend/internal/handlers"
	"github.com/driftlinehq/driftline/backend/internal/middleware"
	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/realtime"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
	"github.com/driftlinehq/driftline/backend/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and wires the notification
// pipeline. The returned dispatcher must be started by the caller and
// stopped on shutdown.
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, broker notify.Broker, hub *realtime.Hub, push notify.Sink, cfg *config.Config) (*notify.Dispatcher, error) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.Reaction{},
		&models.Follow{},
		&models.Share{},
		&models.Notification{},
		&models.DeviceToken{},
	)
	if err != nil {
		return nil, err
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	micropostRepo := repositories.NewMongoMicropostRepository(mgClient.Database("driftline"))
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	reactionRepo := repositories.NewPostgresReactionRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	shareRepo := repositories.NewPostgresShareRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	deviceTokenRepo := repositories.NewPostgresDeviceTokenRepository(pgdb)

	// --- Notification pipeline ---
	logger := notify.NewStdLogger()
	eventRouter := notify.NewRouter(userRepo, micropostRepo, followRepo, logger)
	dispatcherOpts := []notify.DispatcherOption{
		notify.WithQueueSize(cfg.DispatchQueueSize),
		notify.WithWorkers(cfg.DispatchWorkers),
		notify.WithDispatcherLogger(logger),
	}
	if push != nil {
		dispatcherOpts = append(dispatcherOpts, notify.WithSink(push))
	}
	dispatcher, err := notify.NewDispatcher(eventRouter, broker, dispatcherOpts...)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewService(notificationRepo, userRepo, dispatcher,
		notify.WithUnfollowNotifications(cfg.NotifyOnUnfollow),
		notify.WithServiceLogger(logger),
	)
	log.Println("Notification pipeline configured.")

	// --- Realtime gateway ---
	gateway := realtime.NewGateway(hub, logger)
	gateway.RegisterRoutes(e)
	log.Println("Realtime gateway configured.")

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, deviceTokenRepo)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	authHandler.RegisterDeviceRoutes(api)
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Micropost and feed routes
	micropostHandler := handlers.NewMicropostHandler(micropostRepo, followRepo, notifier)
	micropostHandler.RegisterMicropostRoutes(api)
	log.Println("Micropost routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, notifier)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentRepo, micropostRepo, notifier)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Reaction routes
	reactionHandler := handlers.NewReactionHandler(reactionRepo, micropostRepo, notifier)
	reactionHandler.RegisterReactionRoutes(api)
	log.Println("Reaction routes configured.")

	// Share routes
	shareHandler := handlers.NewShareHandler(shareRepo, micropostRepo, notifier)
	shareHandler.RegisterShareRoutes(api)
	log.Println("Share routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
	return dispatcher, nil
}
