package ai

import (
	"context"
	"os"
	"testing"

	"semantic-qa-platform/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		EmbeddingsProvider:    "google",
		GoogleEmbeddingsModel: "text-embedding-004",
		GeminiAPIKey:          "test-key",
		VectorDimensions:      768,
	}
}

func TestNewEmbeddingServiceUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.EmbeddingsProvider = "cohere"
	if _, err := NewEmbeddingService(context.Background(), cfg); err == nil {
		t.Error("expected an error for an unknown provider")
	}
}

func TestNewEmbeddingServiceMissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	if _, err := NewEmbeddingService(context.Background(), cfg); err == nil {
		t.Error("expected an error when the provider key is missing")
	}

	cfg = testConfig()
	cfg.EmbeddingsProvider = "openai"
	cfg.OpenAIAPIKey = ""
	if _, err := NewEmbeddingService(context.Background(), cfg); err == nil {
		t.Error("expected an error when the openai key is missing")
	}
}

func TestDimensionIsFixedAtConstruction(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close()

	if svc.Dimension() != 768 {
		t.Errorf("expected dimension 768, got %d", svc.Dimension())
	}
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close()

	// An empty batch must not contact the backend; the dummy key would fail.
	vectors, err := svc.EmbedTexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors == nil || len(vectors) != 0 {
		t.Errorf("expected an empty vector list, got %v", vectors)
	}
}

// Live round-trip against the real backend. Runs only when a key is supplied.
func TestEmbedTextsLive(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping live embedding test: GEMINI_API_KEY not set")
	}

	cfg := testConfig()
	cfg.GeminiAPIKey = apiKey
	svc, err := NewEmbeddingService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer svc.Close()

	texts := []string{
		"Vector databases index high dimensional embeddings.",
		"Chunk overlap preserves context across boundaries.",
	}
	vectors, err := svc.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("embedding failed: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != svc.Dimension() {
			t.Errorf("vector %d has dimension %d, expected %d", i, len(v), svc.Dimension())
		}
	}
}
