package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"conference-booking-server/config"
	"conference-booking-server/database"
	"conference-booking-server/jobs"
	"conference-booking-server/middleware"
	"conference-booking-server/models"
	"conference-booking-server/routes"
	"conference-booking-server/services"
	ws "conference-booking-server/websocket"
	"conference-booking-server/zoom"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		runSeed()
		return
	}

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Set Gin mode
	if config.AppConfig.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Admin event feed hub
	hub := ws.NewHub()
	go hub.Run()

	// Each resource account gets a client bound to its own credentials.
	clientFactory := func(account *models.ResourceAccount) zoom.Client {
		return zoom.NewAPIClient(
			account.ZoomAccountID,
			account.ZoomClientID,
			account.ZoomClientSecret,
			config.AppConfig.Zoom.APIBaseURL,
			config.AppConfig.Zoom.OAuthURL,
		)
	}
	callDelay := time.Duration(config.AppConfig.Zoom.CallDelayMS) * time.Millisecond

	// Services
	db := database.GetDB()
	availabilityService := services.NewAvailabilityService(db)
	accountService := services.NewAccountService(db, clientFactory)
	provisionService := services.NewProvisionService(db, accountService)
	bookingService := services.NewBookingService(db, availabilityService, accountService, provisionService, hub)
	reconciliationService := services.NewReconciliationService(db, accountService, provisionService, callDelay)
	importService := services.NewImportService(db, accountService, callDelay)

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = false

	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Conference Booking Server is running",
			"time":    time.Now().UTC(),
		})
	})

	bookingHandler := routes.NewBookingHandler(bookingService, availabilityService)
	adminHandler := routes.NewAdminHandler(bookingService, reconciliationService, importService, accountService)

	// API routes
	api := router.Group("/api/v1")
	{
		authRoutes := api.Group("/auth")
		routes.RegisterAuthRoutes(authRoutes)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			bookingRoutes := protected.Group("/bookings")
			routes.RegisterBookingRoutes(bookingRoutes, bookingHandler)

			adminRoutes := protected.Group("/admin")
			adminRoutes.Use(middleware.AdminMiddleware())
			routes.RegisterAdminRoutes(adminRoutes, adminHandler)

			feedRoutes := protected.Group("/ws")
			feedRoutes.Use(middleware.AdminMiddleware())
			routes.RegisterEventFeedRoutes(feedRoutes, hub)
		}
	}

	// Start the reconciliation job
	if config.AppConfig.Jobs.ReconcileEnabled {
		interval := time.Duration(config.AppConfig.Jobs.ReconcileIntervalMin) * time.Minute
		reconciliationJob := jobs.NewReconciliationJob(reconciliationService, hub, interval)
		reconciliationJob.Start()
		defer reconciliationJob.Stop()
	}

	port := config.AppConfig.Server.Port
	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
