package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"semantic-qa-platform/internal/ai"
	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/internal/telemetry"
	"semantic-qa-platform/internal/vectorstore"
	"semantic-qa-platform/middleware"
	"semantic-qa-platform/routes"
	"semantic-qa-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("semantic-qa-api")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	// Connect to MongoDB (document status store)
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	// Verify the asynq broker is reachable before accepting uploads
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	// Long-lived gateways, constructed once and shared across requests
	embedder, err := ai.NewEmbeddingService(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding service:", err)
	}
	defer embedder.Close()

	llm, err := ai.NewLLMClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize LLM client:", err)
	}
	defer llm.Close()

	store := vectorstore.NewStore(vectorstore.Config{
		URL:    cfg.QdrantURL,
		APIKey: cfg.QdrantAPIKey,
	})

	// Provision the collection up front; a dimension mismatch against an
	// existing collection is a configuration error and stops startup.
	if err := store.EnsureCollection(ctx, cfg.QdrantCollection, embedder.Dimension(), vectorstore.DistanceCosine); err != nil {
		log.Fatal("Failed to initialize vector collection:", err)
	}

	qaService := services.NewQAService(cfg, embedder, store, llm)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware("semantic-qa-api"))
	router.Use(middleware.EnrichTrace())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(router, cfg, mongoClient, queueClient)
	routes.SetupQueryRoutes(router, qaService)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
