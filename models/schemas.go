package models

// UploadResponse acknowledges a multi-file upload: accepted files are queued
// for background ingestion, rejected ones are listed without failing the batch.
type UploadResponse struct {
	Message       string   `json:"message"`
	DocumentIDs   []string `json:"document_ids"`
	RejectedFiles []string `json:"rejected_files,omitempty"`
}

// QueryRequest is the query surface input. The optional fields are pointers
// so an explicit zero is distinguishable from an absent value and rejected.
type QueryRequest struct {
	Query          string   `json:"query" binding:"required,min=1"`
	TopKRetrieval  *int     `json:"top_k_retrieval"`
	ScoreThreshold *float32 `json:"score_threshold"`
}

// SourceDocument attributes one retrieved chunk in a query response.
type SourceDocument struct {
	ID          string  `json:"id"`
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title"`
	PageNumber  int     `json:"page_number"`
	Score       float32 `json:"score"`
	TextPreview string  `json:"text_preview"`
}

// QueryResponse is always returned by the query surface, even when a pipeline
// stage fails: failures degrade to an explanatory answer with no sources.
type QueryResponse struct {
	Answer  string           `json:"answer"`
	Sources []SourceDocument `json:"sources"`
}
