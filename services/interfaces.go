package services

import (
	"context"

	"semantic-qa-platform/internal/vectorstore"
	"semantic-qa-platform/models"
)

// Extractor turns raw document bytes into ordered per-page text.
type Extractor interface {
	ExtractPages(data []byte) ([]models.Page, error)
}

// Embedder converts batches of texts into fixed-dimension vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorIndex is the named-collection abstraction over the vector store.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error
	Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []vectorstore.Payload) error
	Search(ctx context.Context, collection string, vector []float32, topK int, scoreThreshold *float32) ([]vectorstore.Hit, error)
}

// Generator answers a prompt with the language model.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}
