package routes

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"semantic-qa-platform/internal/config"
	"semantic-qa-platform/internal/logger"
	"semantic-qa-platform/internal/queue"
	"semantic-qa-platform/models"
	"semantic-qa-platform/utils"
)

// SetupDocumentRoutes registers the upload surface and status endpoints.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, queueClient *asynq.Client) {
	documents := mongoClient.Database(cfg.DBName).Collection("documents")

	group := router.Group("/api/documents")
	group.POST("/upload", HandleDocumentUpload(cfg, documents, queueClient))
	group.GET("/:id/status", CheckDocumentStatus(documents))
	group.GET("", ListDocuments(documents))
}

// HandleDocumentUpload accepts one or more PDF files plus an optional author
// and queues each accepted file for independent background ingestion.
// Per-file validation failures reject that file without failing the batch.
func HandleDocumentUpload(cfg *config.Config, documents *mongo.Collection, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithBadRequest(c, "Failed to parse multipart form", err.Error())
			return
		}

		form := c.Request.MultipartForm
		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files were uploaded", nil)
			return
		}
		author := c.PostForm("author")

		var queuedIDs []string
		var rejected []string

		for _, header := range files {
			docID, err := acceptFile(c.Request.Context(), cfg, documents, queueClient, header, author)
			if err != nil {
				logger.Warn("Rejected upload", "filename", header.Filename, "error", err)
				rejected = append(rejected, header.Filename)
				continue
			}
			queuedIDs = append(queuedIDs, docID)
		}

		message := fmt.Sprintf("%d file(s) accepted and queued for background processing.", len(queuedIDs))
		if len(queuedIDs) == 0 {
			message = "No files were accepted for processing."
		}
		c.JSON(http.StatusAccepted, models.UploadResponse{
			Message:       message,
			DocumentIDs:   queuedIDs,
			RejectedFiles: rejected,
		})
	}
}

// acceptFile validates one uploaded file, persists it for the worker, creates
// its pending status record, and enqueues the ingestion task.
func acceptFile(ctx context.Context, cfg *config.Config, documents *mongo.Collection, queueClient *asynq.Client, header *multipart.FileHeader, author string) (string, error) {
	if header.Size > cfg.MaxFileSize {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", cfg.MaxFileSize)
	}

	ct := header.Header.Get("Content-Type")
	if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	// Basic PDF magic check without loading the whole file
	magic := make([]byte, 5)
	if _, err := io.ReadFull(file, magic); err != nil {
		return "", fmt.Errorf("read file header: %w", err)
	}
	if string(magic[:4]) != "%PDF" {
		return "", fmt.Errorf("file does not appear to be a valid PDF")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	docID := uuid.NewString()

	uploadDir := filepath.Join(cfg.FileStorageDir, "pending")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	filePath := filepath.Join(uploadDir, fmt.Sprintf("%s.pdf", docID))
	dst, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("open destination: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, io.LimitReader(file, cfg.MaxFileSize)); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("save file: %w", err)
	}

	doc := models.Document{
		ID:         docID,
		Filename:   header.Filename,
		Author:     author,
		Size:       header.Size,
		Status:     models.StatusPending,
		UploadedAt: time.Now(),
	}
	if _, err := documents.InsertOne(ctx, doc); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("create status record: %w", err)
	}

	task, err := queue.NewIngestTask(docID, header.Filename, author, filePath)
	if err != nil {
		cleanupAccept(ctx, documents, docID, filePath)
		return "", fmt.Errorf("create ingestion task: %w", err)
	}
	if _, err := queueClient.Enqueue(task); err != nil {
		cleanupAccept(ctx, documents, docID, filePath)
		return "", fmt.Errorf("enqueue ingestion task: %w", err)
	}

	logger.Info("Upload queued for ingestion", "document_id", docID, "filename", header.Filename)
	return docID, nil
}

func cleanupAccept(ctx context.Context, documents *mongo.Collection, docID, filePath string) {
	os.Remove(filePath)
	documents.DeleteOne(ctx, bson.M{"_id": docID})
}

// CheckDocumentStatus reports the ingestion lifecycle of one document.
func CheckDocumentStatus(documents *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := c.Param("id")

		var doc models.Document
		err := documents.FindOne(c.Request.Context(), bson.M{"_id": docID}).Decode(&doc)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve document status", nil)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// ListDocuments lists status records, most recent first, with pagination.
func ListDocuments(documents *mongo.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := 1
		limit := 10
		if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
			page = p
		}
		if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 && l <= 100 {
			limit = l
		}

		ctx := c.Request.Context()
		cursor, err := documents.Find(
			ctx,
			bson.M{},
			options.Find().
				SetSort(bson.M{"uploaded_at": -1}).
				SetSkip(int64((page-1)*limit)).
				SetLimit(int64(limit)),
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve documents", nil)
			return
		}
		defer cursor.Close(ctx)

		docs := []models.Document{}
		if err := cursor.All(ctx, &docs); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode documents", nil)
			return
		}

		total, err := documents.CountDocuments(ctx, bson.M{})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to count documents", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": docs,
			"pagination": gin.H{
				"page":        page,
				"limit":       limit,
				"total":       total,
				"total_pages": (total + int64(limit) - 1) / int64(limit),
			},
		})
	}
}
