package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/internal/vectorstore"
	"semantic-qa-platform/models"
)

const previewLength = 150

// Degraded-answer strings returned when a pipeline stage fails. The query
// surface always gets an answerable response object; pipeline faults are
// converted here rather than propagated.
const (
	answerEmbeddingFailure  = "Error: Could not process the query due to an embedding failure."
	answerSearchFailure     = "Error: Could not process the query due to a search failure."
	answerGenerationFailure = "Error: Could not generate an answer due to an LLM failure."
	answerNoContext         = "I could not find any relevant documents to answer your question based on the current criteria."
)

// QAService orchestrates the query pipeline: embed the query, search the
// index, build a context-constrained prompt, and generate the answer.
type QAService struct {
	cfg      *config.Config
	embedder Embedder
	store    VectorIndex
	llm      Generator
}

func NewQAService(cfg *config.Config, embedder Embedder, store VectorIndex, llm Generator) *QAService {
	return &QAService{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		llm:      llm,
	}
}

// AnswerQuery runs the full pipeline and always returns a response object.
// A failing stage short-circuits to an explanatory answer with no sources.
func (s *QAService) AnswerQuery(ctx context.Context, req models.QueryRequest) models.QueryResponse {
	tracer := otel.Tracer("qa-service")
	ctx, span := tracer.Start(ctx, "query.answer")
	defer span.End()

	topK := s.cfg.TopKRetrieval
	if req.TopKRetrieval != nil && *req.TopKRetrieval > 0 {
		topK = *req.TopKRetrieval
	}
	threshold := float32(s.cfg.ScoreThreshold)
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}
	span.SetAttributes(
		attribute.Int("query.top_k", topK),
		attribute.Float64("query.score_threshold", float64(threshold)),
	)

	// 1. Embed the query as a single-element batch.
	vectors, err := s.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil || len(vectors) != 1 {
		logger.Error("Query embedding failed", "error", err)
		return models.QueryResponse{Answer: answerEmbeddingFailure, Sources: []models.SourceDocument{}}
	}

	// 2. Retrieve the most similar chunks.
	hits, err := s.store.Search(ctx, s.cfg.QdrantCollection, vectors[0], topK, &threshold)
	if err != nil {
		logger.Error("Similarity search failed", "error", err)
		return models.QueryResponse{Answer: answerSearchFailure, Sources: []models.SourceDocument{}}
	}

	// 3. No hits above the threshold is a normal outcome, not an error.
	if len(hits) == 0 {
		logger.Info("No relevant chunks found", "top_k", topK, "score_threshold", threshold)
		return models.QueryResponse{Answer: answerNoContext, Sources: []models.SourceDocument{}}
	}
	span.SetAttributes(attribute.Int("query.hits", len(hits)))

	// 4. Generate the answer from the retrieved context.
	prompt := buildPrompt(req.Query, hits)
	answer, err := s.llm.Generate(ctx, prompt, float32(s.cfg.LLMTemperature), s.cfg.LLMMaxTokens)
	if err != nil {
		logger.Error("Answer generation failed", "error", err)
		return models.QueryResponse{Answer: answerGenerationFailure, Sources: []models.SourceDocument{}}
	}

	// 5. Assemble sources in hit (score-descending) order.
	sources := make([]models.SourceDocument, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, models.SourceDocument{
			ID:          hit.ID,
			DocumentID:  hit.Payload.DocumentID,
			Title:       hit.Payload.Title,
			PageNumber:  hit.Payload.PageNumber,
			Score:       hit.Score,
			TextPreview: textPreview(hit.Payload.Text),
		})
	}

	return models.QueryResponse{Answer: strings.TrimSpace(answer), Sources: sources}
}

// buildPrompt concatenates a labeled block per retrieved chunk, in score
// order, under an instruction that constrains the model to the supplied
// context.
func buildPrompt(query string, hits []vectorstore.Hit) string {
	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		blocks = append(blocks, fmt.Sprintf(
			"Source Document: %s, Page: %d\nContent: %s",
			hit.Payload.Title, hit.Payload.PageNumber, hit.Payload.Text,
		))
	}

	return fmt.Sprintf(`You are a helpful AI assistant. Answer the following query based ONLY on the provided context information.
If the answer cannot be found in the context, state "I cannot answer this question based on the provided context."
Do not use any external knowledge or information not present in the context.

Context Information:
%s

Query: %s
Answer:`, strings.Join(blocks, "\n\n---\n\n"), query)
}

// textPreview returns the first 150 characters of a chunk for source
// attribution, always marked as a preview, or "N/A" for an empty chunk.
func textPreview(text string) string {
	if text == "" {
		return "N/A"
	}
	runes := []rune(text)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + "..."
}
