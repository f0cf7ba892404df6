package services

import (
	"context"
	"strings"
	"testing"

	"semantic-qa-platform/internal/vectorstore"
	"semantic-qa-platform/models"
	"semantic-qa-platform/utils"
)

func sampleHits() []vectorstore.Hit {
	return []vectorstore.Hit{
		{
			ID:    "p1",
			Score: 0.91,
			Payload: vectorstore.Payload{
				Text:          "Postgres stores rows in heap files.",
				PageNumber:    3,
				SequenceIndex: 0,
				DocumentID:    "doc-a",
				Title:         "storage.pdf",
			},
		},
		{
			ID:    "p2",
			Score: 0.82,
			Payload: vectorstore.Payload{
				Text:          "Indexes speed up point lookups.",
				PageNumber:    7,
				SequenceIndex: 4,
				DocumentID:    "doc-b",
				Title:         "indexing.pdf",
			},
		},
	}
}

func TestAnswerQuerySuccess(t *testing.T) {
	cfg := pipelineConfig()
	embedder := &fakeEmbedder{dims: 3}
	index := &fakeIndex{hits: sampleHits()}
	llm := &fakeGenerator{answer: "  Rows live in heap files.  "}

	svc := NewQAService(cfg, embedder, index, llm)
	resp := svc.AnswerQuery(context.Background(), models.QueryRequest{Query: "Where are rows stored?"})

	if resp.Answer != "Rows live in heap files." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].ID != "p1" || resp.Sources[1].ID != "p2" {
		t.Errorf("sources out of hit order: %q, %q", resp.Sources[0].ID, resp.Sources[1].ID)
	}
	if resp.Sources[0].Score != 0.91 || resp.Sources[0].PageNumber != 3 || resp.Sources[0].DocumentID != "doc-a" {
		t.Errorf("source attribution mismatch: %+v", resp.Sources[0])
	}
	if resp.Sources[0].TextPreview != "Postgres stores rows in heap files...." {
		t.Errorf("preview should carry the full short text plus marker: %q", resp.Sources[0].TextPreview)
	}

	// Defaults from configuration apply when the request leaves them unset.
	if index.searchTopK != cfg.TopKRetrieval {
		t.Errorf("expected default top_k %d, got %d", cfg.TopKRetrieval, index.searchTopK)
	}
	if index.searchThreshold == nil || *index.searchThreshold != float32(cfg.ScoreThreshold) {
		t.Errorf("expected default score threshold %v, got %v", cfg.ScoreThreshold, index.searchThreshold)
	}

	// The prompt carries each retrieved chunk with its provenance.
	if !strings.Contains(llm.prompt, "Source Document: storage.pdf, Page: 3") {
		t.Errorf("prompt missing first source block:\n%s", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "Indexes speed up point lookups.") {
		t.Errorf("prompt missing second chunk text:\n%s", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "Where are rows stored?") {
		t.Errorf("prompt missing the query:\n%s", llm.prompt)
	}
}

func TestAnswerQueryRequestOverrides(t *testing.T) {
	cfg := pipelineConfig()
	index := &fakeIndex{hits: sampleHits()}
	svc := NewQAService(cfg, &fakeEmbedder{dims: 3}, index, &fakeGenerator{answer: "ok"})

	topK := 2
	threshold := float32(0.35)
	svc.AnswerQuery(context.Background(), models.QueryRequest{
		Query:          "q",
		TopKRetrieval:  &topK,
		ScoreThreshold: &threshold,
	})

	if index.searchTopK != 2 {
		t.Errorf("expected top_k override 2, got %d", index.searchTopK)
	}
	if index.searchThreshold == nil || *index.searchThreshold != 0.35 {
		t.Errorf("expected threshold override 0.35, got %v", index.searchThreshold)
	}
}

func TestAnswerQueryEmbeddingFailure(t *testing.T) {
	cfg := pipelineConfig()
	embedder := &fakeEmbedder{dims: 3, err: utils.NewEmbeddingError("backend down")}
	svc := NewQAService(cfg, embedder, &fakeIndex{}, &fakeGenerator{answer: "ok"})

	resp := svc.AnswerQuery(context.Background(), models.QueryRequest{Query: "q"})
	if resp.Answer != answerEmbeddingFailure {
		t.Errorf("unexpected degraded answer: %q", resp.Answer)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("degraded response must carry an empty source list, got %v", resp.Sources)
	}
}

func TestAnswerQuerySearchFailure(t *testing.T) {
	cfg := pipelineConfig()
	index := &fakeIndex{searchErr: utils.NewStoreError("connection refused")}
	svc := NewQAService(cfg, &fakeEmbedder{dims: 3}, index, &fakeGenerator{answer: "ok"})

	resp := svc.AnswerQuery(context.Background(), models.QueryRequest{Query: "q"})
	if resp.Answer != answerSearchFailure {
		t.Errorf("unexpected degraded answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
}

func TestAnswerQueryNoRelevantContext(t *testing.T) {
	cfg := pipelineConfig()
	index := &fakeIndex{hits: nil}
	llm := &fakeGenerator{answer: "should not be called"}
	svc := NewQAService(cfg, &fakeEmbedder{dims: 3}, index, llm)

	resp := svc.AnswerQuery(context.Background(), models.QueryRequest{Query: "q"})
	if resp.Answer != answerNoContext {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("expected an empty source list, got %v", resp.Sources)
	}
	if llm.prompt != "" {
		t.Error("generation must be skipped when nothing is retrieved")
	}
}

func TestAnswerQueryGenerationFailure(t *testing.T) {
	cfg := pipelineConfig()
	index := &fakeIndex{hits: sampleHits()}
	llm := &fakeGenerator{err: utils.NewGenerationError("model overloaded")}
	svc := NewQAService(cfg, &fakeEmbedder{dims: 3}, index, llm)

	resp := svc.AnswerQuery(context.Background(), models.QueryRequest{Query: "q"})
	if resp.Answer != answerGenerationFailure {
		t.Errorf("unexpected degraded answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("degraded response must not attribute sources, got %d", len(resp.Sources))
	}
}

func TestTextPreview(t *testing.T) {
	if got := textPreview(""); got != "N/A" {
		t.Errorf("empty text preview: %q", got)
	}

	// The marker is appended whether or not the text was truncated.
	if got := textPreview("short chunk"); got != "short chunk..." {
		t.Errorf("short text preview: %q", got)
	}

	long := strings.Repeat("ab", 200)
	got := textPreview(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long preview should end with the marker: %q", got)
	}
	if len([]rune(got)) != previewLength+3 {
		t.Errorf("expected %d runes, got %d", previewLength+3, len([]rune(got)))
	}
}
