package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// FailureKind classifies pipeline errors so callers can react per stage
// without string matching.
type FailureKind string

const (
	KindParsing         FailureKind = "parsing"
	KindEmbedding       FailureKind = "embedding"
	KindStore           FailureKind = "store"
	KindGeneration      FailureKind = "generation"
	KindInputValidation FailureKind = "input_validation"
	KindConsistency     FailureKind = "consistency"
)

// PipelineError tags an underlying error with a FailureKind.
type PipelineError struct {
	Kind FailureKind
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func NewParsingError(format string, args ...any) error {
	return &PipelineError{Kind: KindParsing, Err: fmt.Errorf(format, args...)}
}

func NewEmbeddingError(format string, args ...any) error {
	return &PipelineError{Kind: KindEmbedding, Err: fmt.Errorf(format, args...)}
}

func NewStoreError(format string, args ...any) error {
	return &PipelineError{Kind: KindStore, Err: fmt.Errorf(format, args...)}
}

func NewGenerationError(format string, args ...any) error {
	return &PipelineError{Kind: KindGeneration, Err: fmt.Errorf(format, args...)}
}

func NewValidationError(format string, args ...any) error {
	return &PipelineError{Kind: KindInputValidation, Err: fmt.Errorf(format, args...)}
}

func NewConsistencyError(format string, args ...any) error {
	return &PipelineError{Kind: KindConsistency, Err: fmt.Errorf(format, args...)}
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind FailureKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}
