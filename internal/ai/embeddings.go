package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	gapi "google.golang.org/api/option"

	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/utils"
)

// EmbeddingService converts batches of texts into equal-length vectors. The
// provider and dimensionality are fixed at construction; one instance is
// shared across concurrent requests.
type EmbeddingService struct {
	provider string
	dims     int

	googleClient *genai.Client
	googleModel  string

	openaiClient openai.Client
	openaiModel  string
}

// NewEmbeddingService constructs the configured provider eagerly so that a
// misconfigured backend stops the process at startup instead of failing on
// the first batch.
func NewEmbeddingService(ctx context.Context, cfg *config.Config) (*EmbeddingService, error) {
	svc := &EmbeddingService{
		provider: cfg.EmbeddingsProvider,
		dims:     cfg.VectorDimensions,
	}

	switch cfg.EmbeddingsProvider {
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		client, err := genai.NewClient(ctx, gapi.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		svc.googleClient = client
		svc.googleModel = cfg.GoogleEmbeddingsModel

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for embeddings")
		}
		svc.openaiClient = openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
		svc.openaiModel = cfg.OpenAIEmbeddingsModel

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	logger.Info("Embedding service initialized", "provider", cfg.EmbeddingsProvider, "dimensions", cfg.VectorDimensions)
	return svc, nil
}

// Dimension returns the vector size every embedding from this instance has.
func (s *EmbeddingService) Dimension() int {
	return s.dims
}

// Close releases provider resources. Only the google client holds a connection.
func (s *EmbeddingService) Close() {
	if s.googleClient != nil {
		s.googleClient.Close()
	}
}

// EmbedTexts returns one vector per input text, in input order. An empty
// input returns an empty slice without contacting the backend. A batch either
// fully succeeds or fully fails; partial results are never returned.
func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	tracer := otel.Tracer("embedding-service")
	ctx, span := tracer.Start(ctx, "embeddings.embed_texts")
	defer span.End()
	span.SetAttributes(
		attribute.String("embeddings.provider", s.provider),
		attribute.Int("embeddings.batch_size", len(texts)),
	)

	var (
		vectors [][]float32
		err     error
	)
	switch s.provider {
	case "google":
		vectors, err = s.embedGoogle(ctx, texts)
	case "openai":
		vectors, err = s.embedOpenAI(ctx, texts)
	default:
		return nil, utils.NewEmbeddingError("unknown embeddings provider: %s", s.provider)
	}
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, utils.NewEmbeddingError("backend returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != s.dims {
			return nil, utils.NewEmbeddingError("vector %d has dimension %d, expected %d", i, len(v), s.dims)
		}
	}
	return vectors, nil
}

func (s *EmbeddingService) embedGoogle(ctx context.Context, texts []string) ([][]float32, error) {
	model := s.googleClient.EmbeddingModel(s.googleModel)
	batch := model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, utils.NewEmbeddingError("google batch embed: %v", err)
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			return nil, utils.NewEmbeddingError("google batch embed returned a nil embedding")
		}
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

func (s *EmbeddingService) embedOpenAI(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.openaiClient.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(s.openaiModel),
	})
	if err != nil {
		return nil, utils.NewEmbeddingError("openai embed: %v", err)
	}

	// The API may return data out of order; Index restores input order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, utils.NewEmbeddingError("openai embed returned out-of-range index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		vectors[d.Index] = vec
	}
	for i, v := range vectors {
		if v == nil {
			return nil, utils.NewEmbeddingError("openai embed returned no vector for input %d", i)
		}
	}
	return vectors, nil
}
