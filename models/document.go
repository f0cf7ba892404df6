package models

import "time"

// Document processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is the persisted status record for one uploaded file. It tracks
// the background ingestion lifecycle; the indexed content itself lives in
// the vector store, not here.
type Document struct {
	ID          string     `bson:"_id" json:"id"`
	Filename    string     `bson:"filename" json:"filename"`
	Author      string     `bson:"author,omitempty" json:"author,omitempty"`
	Size        int64      `bson:"size" json:"size"`
	Status      string     `bson:"status" json:"status"`
	ChunkCount  int        `bson:"chunk_count" json:"chunk_count"`
	ErrorReason string     `bson:"error_reason,omitempty" json:"error_reason,omitempty"`
	UploadedAt  time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Page is one page of extracted text, 1-indexed.
type Page struct {
	Number int
	Text   string
}

// Chunk is a bounded text span carved from one page. Chunks are transient:
// produced by the chunker, embedded, and persisted only as vector store points.
type Chunk struct {
	Text          string
	PageNumber    int
	SequenceIndex int
}

// DocumentMeta is attached identically to every chunk's payload at indexing time.
type DocumentMeta struct {
	DocumentID string
	Title      string
	Author     string
}
