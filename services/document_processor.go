package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/internal/vectorstore"
	"semantic-qa-platform/utils"
)

// DocumentProcessor drives the ingestion pipeline for one document:
// extract -> chunk -> embed -> upsert. Each call is an independent unit of
// work; a failure at any stage aborts that document with no partial index
// writes, since the upsert at the end is the sole write.
type DocumentProcessor struct {
	cfg       *config.Config
	chunker   *Chunker
	extractor Extractor
	embedder  Embedder
	store     VectorIndex
}

func NewDocumentProcessor(cfg *config.Config, extractor Extractor, embedder Embedder, store VectorIndex) *DocumentProcessor {
	return &DocumentProcessor{
		cfg:       cfg,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		extractor: extractor,
		embedder:  embedder,
		store:     store,
	}
}

// ProcessAndIndex ingests one document and returns its document ID with the
// number of indexed chunks. The ID is assigned at entry: callers that created
// a status record ahead of time pass theirs, otherwise a fresh one is
// generated. A document that yields no text is a valid terminal state: the ID
// is returned with zero chunks and nothing is written to the index.
func (p *DocumentProcessor) ProcessAndIndex(ctx context.Context, docID string, pdfBytes []byte, filename, author string) (string, int, error) {
	tracer := otel.Tracer("document-processor")
	ctx, span := tracer.Start(ctx, "ingest.process_and_index")
	defer span.End()

	if docID == "" {
		docID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("document.id", docID),
		attribute.String("document.filename", filename),
	)
	logger.Info("Starting document processing", "document_id", docID, "filename", filename)

	// Collection readiness is a precondition for every ingestion; the check
	// is cheap and idempotent, so it runs on each call.
	err := p.store.EnsureCollection(ctx, p.cfg.QdrantCollection, p.embedder.Dimension(), vectorstore.DistanceCosine)
	if err != nil {
		return "", 0, p.wrap(docID, filename, err)
	}

	pages, err := p.extractor.ExtractPages(pdfBytes)
	if err != nil {
		return "", 0, p.wrap(docID, filename, err)
	}
	if len(pages) == 0 {
		logger.Warn("No text extracted from document", "document_id", docID, "filename", filename)
		return docID, 0, nil
	}

	chunks := p.chunker.Chunk(pages)
	if len(chunks) == 0 {
		logger.Warn("No chunks produced from document", "document_id", docID, "filename", filename)
		return docID, 0, nil
	}
	span.SetAttributes(attribute.Int("document.chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return "", 0, p.wrap(docID, filename, err)
	}
	// The gateway contract guarantees one vector per text; anything else is
	// an internal invariant violation, not a backend condition.
	if len(vectors) != len(chunks) {
		return "", 0, p.wrap(docID, filename,
			utils.NewConsistencyError("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	payloads := make([]vectorstore.Payload, len(chunks))
	for i, ch := range chunks {
		payloads[i] = vectorstore.Payload{
			Text:          ch.Text,
			PageNumber:    ch.PageNumber,
			SequenceIndex: ch.SequenceIndex,
			DocumentID:    docID,
			Title:         filename,
			Author:        author,
		}
	}
	if err := p.store.Upsert(ctx, p.cfg.QdrantCollection, vectors, payloads); err != nil {
		return "", 0, p.wrap(docID, filename, err)
	}

	logger.Info("Document indexed", "document_id", docID, "filename", filename, "chunks", len(chunks))
	return docID, len(chunks), nil
}

// wrap tags a stage failure with the document identity for observability
// while preserving the underlying failure kind.
func (p *DocumentProcessor) wrap(docID, filename string, err error) error {
	logger.Error("Document processing failed", "document_id", docID, "filename", filename, "error", err)
	return fmt.Errorf("processing document %s (%s): %w", docID, filename, err)
}
