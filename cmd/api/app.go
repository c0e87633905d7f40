package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwala/cartwala/internal/adapter/api/controller"
	"github.com/cartwala/cartwala/internal/adapter/api/route"
	"github.com/cartwala/cartwala/internal/adapter/repository"
	"github.com/cartwala/cartwala/internal/infrastructure/database"
	"github.com/cartwala/cartwala/pkg/classifier"
	"github.com/cartwala/cartwala/pkg/conversation"
	"github.com/cartwala/cartwala/pkg/geocoder"
	"github.com/cartwala/cartwala/pkg/logger"
	"github.com/cartwala/cartwala/pkg/messenger"
	"github.com/cartwala/cartwala/pkg/retailer"
	"github.com/cartwala/cartwala/pkg/secret"
)

// App holds the application and its dependencies
type App struct {
	router            *gin.Engine
	db                *pgxpool.Pool
	logger            logger.Logger
	resolver          *conversation.Resolver
	webhookController *controller.WebhookController
}

// NewApp wires the application from environment configuration
func NewApp() (*App, error) {
	log := logger.NewLogger()

	dbConfig := database.NewPostgresConfigFromEnv()
	db, err := database.NewPostgresPool(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)
	cartRepo := repository.NewCartRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	productRepo := repository.NewProductRepository(db)
	chatRepo := repository.NewChatRepository(db)

	box, err := secret.NewBoxFromEnv()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize credential sealing: %w", err)
	}

	cls, err := classifier.NewOpenAIClassifierFromEnv(log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}

	sender, err := messenger.NewWhatsAppSenderFromEnv(log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize WhatsApp sender: %w", err)
	}

	geo := geocoder.NewNominatimGeocoderFromEnv()
	otpGateway := retailer.NewLoggingOTPGateway(log)

	resolver := conversation.NewResolver(
		log,
		sessionRepo,
		userRepo,
		cartRepo,
		credentialRepo,
		productRepo,
		chatRepo,
		cls,
		otpGateway,
		box,
	)

	webhookController := controller.NewWebhookController(
		resolver,
		userRepo,
		chatRepo,
		sender,
		geo,
		log,
		os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		os.Getenv("WHATSAPP_APP_SECRET"),
	)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Hub-Signature-256"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	app := &App{
		router:            router,
		db:                db,
		logger:            log,
		resolver:          resolver,
		webhookController: webhookController,
	}
	app.setupRoutes()

	return app, nil
}

func (a *App) setupRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	api := a.router.Group("/api/v1")
	route.SetupWebhookRoutes(api, a.webhookController)
}

// Start runs the HTTP server on PORT (default 8080)
func (a *App) Start() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	a.logger.Info("Starting server", "port", port)
	return a.router.Run(":" + port)
}

// Close releases the application resources
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
