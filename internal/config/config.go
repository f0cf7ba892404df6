package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Upload limits
	MaxFileSize    int64
	AllowedTypes   []string
	FileStorageDir string

	// MongoDB (document status store)
	MongoURI string
	DBName   string

	// Redis (asynq broker)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Qdrant vector index
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	VectorDimensions int

	// Embeddings configuration
	EmbeddingsProvider    string // "google" (default), "openai"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	OpenAIEmbeddingsModel string // e.g., "text-embedding-3-small"
	GeminiAPIKey          string
	OpenAIAPIKey          string

	// LLM configuration
	LLMProvider    string // "google" (default), "openai"
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int

	// Chunking
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int

	// Retrieval defaults
	TopKRetrieval  int
	ScoreThreshold float64

	// Worker
	WorkerConcurrency int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedTypes:   strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf"), ","),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/semantic_qa"),
		DBName:   getEnv("DB_NAME", "semantic_qa"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION_NAME", "semantic_qa_collection"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),

		LLMProvider:    getEnv("LLM_PROVIDER", "google"),
		LLMModel:       getEnv("LLM_MODEL", "gemini-2.0-flash"),
		LLMTemperature: getEnvFloat64("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 700),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),

		TopKRetrieval:  getEnvInt("TOP_K_RETRIEVAL", 5),
		ScoreThreshold: getEnvFloat64("SCORE_THRESHOLD", 0.7),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 20),
	}

	// Validate provider credentials up front so the process refuses to start
	// rather than failing on first use.
	switch cfg.EmbeddingsProvider {
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the google embeddings provider - set it in .env file")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embeddings provider - set it in .env file")
		}
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	switch cfg.LLMProvider {
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the google LLM provider - set it in .env file")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai LLM provider - set it in .env file")
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}

	if cfg.VectorDimensions <= 0 {
		return nil, fmt.Errorf("VECTOR_DIM must be positive, got %d", cfg.VectorDimensions)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
