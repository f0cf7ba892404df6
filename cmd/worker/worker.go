package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"semantic-qa-platform/internal/ai"
	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/internal/queue"
	"semantic-qa-platform/internal/telemetry"
	"semantic-qa-platform/internal/vectorstore"
	"semantic-qa-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("semantic-qa-worker")
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
	documents := mongoClient.Database(cfg.DBName).Collection("documents")

	ctx := context.Background()

	embedder, err := ai.NewEmbeddingService(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding service:", err)
	}
	defer embedder.Close()

	store := vectorstore.NewStore(vectorstore.Config{
		URL:    cfg.QdrantURL,
		APIKey: cfg.QdrantAPIKey,
	})

	extractor := services.NewPDFExtractor()
	docProcessor := services.NewDocumentProcessor(cfg, extractor, embedder, store)
	taskProcessor := queue.NewTaskProcessor(docProcessor, documents)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, taskProcessor.HandleIngestDocument)

	logger.Info("Worker starting", "concurrency", cfg.WorkerConcurrency)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
