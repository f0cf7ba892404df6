package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/models"
	"semantic-qa-platform/services"
	"semantic-qa-platform/utils"
)

const TaskIngestDocument = "document:ingest"

// IngestPayload identifies one queued document. The file content stays on
// disk; the queue carries only the path so payloads stay small.
type IngestPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Author     string `json:"author,omitempty"`
	FilePath   string `json:"file_path"`
}

// NewIngestTask creates the background ingestion task for one accepted upload.
func NewIngestTask(documentID, filename, author, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		DocumentID: documentID,
		Filename:   filename,
		Author:     author,
		FilePath:   filePath,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor handles queued ingestion work and records lifecycle
// transitions in the document status store. Completion and failure are only
// observable through that store and the logs; there is no synchronous caller.
type TaskProcessor struct {
	processor *services.DocumentProcessor
	documents *mongo.Collection
}

func NewTaskProcessor(processor *services.DocumentProcessor, documents *mongo.Collection) *TaskProcessor {
	return &TaskProcessor{
		processor: processor,
		documents: documents,
	}
}

func (p *TaskProcessor) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Ingestion task started", "document_id", payload.DocumentID, "filename", payload.Filename)
	p.setStatus(ctx, payload.DocumentID, models.StatusProcessing, nil)

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		p.markFailed(ctx, payload, fmt.Sprintf("stored file unreadable: %v", err))
		return fmt.Errorf("read %s: %v: %w", payload.FilePath, err, asynq.SkipRetry)
	}

	_, chunkCount, err := p.processor.ProcessAndIndex(ctx, payload.DocumentID, data, payload.Filename, payload.Author)
	if err != nil {
		// Corrupt input and internal invariant violations cannot succeed on
		// retry; transient embedding/store faults get asynq's bounded retries.
		if utils.IsKind(err, utils.KindParsing) || utils.IsKind(err, utils.KindConsistency) || utils.IsKind(err, utils.KindInputValidation) {
			p.markFailed(ctx, payload, err.Error())
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if lastAttempt(ctx) {
			p.markFailed(ctx, payload, err.Error())
		}
		return err
	}

	now := time.Now()
	p.setStatus(ctx, payload.DocumentID, models.StatusCompleted, bson.M{
		"chunk_count":  chunkCount,
		"processed_at": now,
	})
	removeStoredFile(payload)

	logger.Info("Ingestion task completed", "document_id", payload.DocumentID, "chunks", chunkCount)
	return nil
}

func (p *TaskProcessor) markFailed(ctx context.Context, payload IngestPayload, reason string) {
	now := time.Now()
	p.setStatus(ctx, payload.DocumentID, models.StatusFailed, bson.M{
		"error_reason": reason,
		"processed_at": now,
	})
	removeStoredFile(payload)
}

func (p *TaskProcessor) setStatus(ctx context.Context, documentID, status string, extra bson.M) {
	update := bson.M{"status": status}
	for k, v := range extra {
		update[k] = v
	}
	_, err := p.documents.UpdateOne(ctx, bson.M{"_id": documentID}, bson.M{"$set": update})
	if err != nil {
		logger.Error("Failed to update document status", "document_id", documentID, "status", status, "error", err)
	}
}

func removeStoredFile(payload IngestPayload) {
	if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove stored file", "path", payload.FilePath, "error", err)
	}
}

// lastAttempt reports whether the current execution is the task's final retry.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}
	return retried >= maxRetry
}
