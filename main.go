package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jeevijay-developers/riskmarshal-office/config"
	"github.com/jeevijay-developers/riskmarshal-office/handler"
	"github.com/jeevijay-developers/riskmarshal-office/middleware"
	"github.com/jeevijay-developers/riskmarshal-office/pkg/logger"
	"github.com/jeevijay-developers/riskmarshal-office/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services. Document staging keeps a copy of the uploaded
	// scan; the core upload still works without it, so a staging outage
	// degrades rather than blocks intake.
	documents, err := service.NewDocumentStore(&cfg.Minio)
	if err != nil {
		slog.Warn("document staging unavailable", "error", err)
		documents = nil
	} else if err := documents.EnsureBucket(context.Background()); err != nil {
		slog.Warn("document staging bucket unavailable", "error", err)
		documents = nil
	}

	coreClient := service.NewCoreClient(&cfg.Core)

	// Initialize session store with config
	service.InitSessionStore(&cfg.Store)
	store := service.GetSessionStore()

	// Load lookup data once at startup
	lookups := service.NewLookupCache(coreClient, time.Duration(cfg.Lookup.SearchDebounceMs)*time.Millisecond)
	lookups.Load(context.Background())

	workflow := service.NewWorkflowService(coreClient, documents, store)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	lookupHandler := handler.NewLookupHandler(lookups)
	intakeHandler := handler.NewIntakeHandler(workflow, store)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.GET("/lookups/insurers", lookupHandler.Insurers)
		protected.GET("/lookups/policy-types", lookupHandler.PolicyTypes)
		protected.GET("/lookups/subagents", lookupHandler.Subagents)
		protected.GET("/lookups/clients", lookupHandler.Clients)

		protected.POST("/intake/sessions", intakeHandler.Create)
		protected.GET("/intake/sessions", intakeHandler.List)
		protected.GET("/intake/sessions/:id", intakeHandler.Get)
		protected.DELETE("/intake/sessions/:id", intakeHandler.Delete)
		protected.POST("/intake/sessions/:id/upload", intakeHandler.Upload)
		protected.PUT("/intake/sessions/:id/fields", intakeHandler.SetField)
		protected.POST("/intake/sessions/:id/edit-mode", intakeHandler.ToggleEditMode)
		protected.POST("/intake/sessions/:id/save", intakeHandler.Save)
		protected.POST("/intake/sessions/:id/back", intakeHandler.Back)
		protected.POST("/intake/sessions/:id/notify", intakeHandler.Notify)
		protected.POST("/intake/sessions/:id/reset", intakeHandler.Reset)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
