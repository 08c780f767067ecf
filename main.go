package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection-service/config"
	"inspection-service/database"
	"inspection-service/handlers"
	"inspection-service/middleware"
	"inspection-service/models"
	"inspection-service/rabbitmq"
	"inspection-service/storage"
	"inspection-service/utils"
	ws "inspection-service/websocket"
	"inspection-service/workflow"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if cfg.LogLevel == "debug" {
		log.SetLevel(log.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database connection
	db, err := utils.DBConnect(cfg)
	if err != nil {
		stdlog.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Initialize database schema
	stdlog.Println("Initializing database schema...")
	if err := database.InitializeSchema(db); err != nil {
		stdlog.Fatal("Failed to initialize database schema:", err)
	}

	// Initialize services
	authService := database.NewAuthService(db, cfg.JWTSecret)
	inspectionService := database.NewInspectionService(db)
	agencyService := database.NewAgencyService(db)
	allocator := database.NewSequenceAllocator(db)

	if err := agencyService.SeedDefaultAgencies(context.Background()); err != nil {
		stdlog.Fatal("Failed to seed agencies:", err)
	}

	// Photo checklist, overridable without a migration
	checklist, err := models.LoadChecklist(cfg.ChecklistFile)
	if err != nil {
		stdlog.Fatal("Failed to load checklist:", err)
	}

	// Photo blob store
	blobStore := storage.NewLocalStore(cfg.StorageRoot, cfg.StorageBaseURL)

	// WebSocket hub for live history views
	hub := ws.NewHub()
	go hub.Run()

	notifiers := []workflow.Notifier{hub}

	// Optional AMQP event publishing
	if cfg.AMQPURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			stdlog.Fatal("Failed to connect to RabbitMQ:", err)
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	wf := workflow.New(allocator, inspectionService, blobStore, checklist,
		cfg.RequirePhoto, cfg.PhotoUploadWorkers, notifiers...)

	// Setup router
	h := handlers.NewHandlers(authService, inspectionService, agencyService, wf, hub)
	router := setupRouter(h, authService, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		stdlog.Printf("Inspection service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stdlog.Fatal("Failed to start HTTP server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stdlog.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		stdlog.Fatal("Server forced to shutdown:", err)
	}

	stdlog.Println("Server exited")
}

func setupRouter(h *handlers.Handlers, authService *database.AuthService, cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies(cfg.TrustedProxies)

	router.Use(middleware.CORSMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/inspections/listen"})))

	// Stored photos served straight from the local blob store
	router.Static("/photos", cfg.StorageRoot)

	// Root level health check
	router.GET("/health", h.HealthCheck)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.POST("/auth/login", h.Login)
		public.POST("/auth/refresh", h.RefreshToken)
		public.GET("/health", h.HealthCheck)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		protected.POST("/auth/logout", h.Logout)
		protected.GET("/users/me", h.GetMe)

		protected.POST("/inspections", h.SubmitInspection)
		protected.POST("/inspections/:id/photos", h.RetryPhotos)
		protected.GET("/inspections", h.ListInspections)
		protected.GET("/inspections/:id", h.GetInspection)
		protected.GET("/inspections/listen", h.ListenInspections)

		protected.GET("/checklist", h.GetChecklist)
		protected.GET("/agencies", h.ListAgencies)
	}

	// Admin routes
	admin := router.Group("/api/v1")
	admin.Use(middleware.AuthMiddleware(authService), middleware.RequireAdmin())
	{
		admin.POST("/users", h.CreateUser)
		admin.GET("/users", h.ListUsers)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.PUT("/users/:id/pin", h.UpdatePin)
		admin.PUT("/users/:id/admin", h.UpdateAdmin)

		admin.POST("/agencies", h.CreateAgency)
		admin.DELETE("/agencies/:id", h.DeleteAgency)

		admin.DELETE("/inspections/:id", h.DeleteInspection)
	}

	return router
}
