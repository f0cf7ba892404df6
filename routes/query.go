package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"semantic-qa-platform/models"
	"semantic-qa-platform/services"
	"semantic-qa-platform/utils"
)

// SetupQueryRoutes registers the query surface.
func SetupQueryRoutes(router *gin.Engine, qaService *services.QAService) {
	router.POST("/api/query", HandleQuery(qaService))
}

// HandleQuery runs the question-answering pipeline synchronously. Malformed
// input fails loudly with 400; pipeline-stage failures never surface as HTTP
// errors because the service degrades them to an explanatory answer.
func HandleQuery(qaService *services.QAService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid query request", err.Error())
			return
		}

		if req.TopKRetrieval != nil && *req.TopKRetrieval <= 0 {
			utils.RespondWithBadRequest(c, "top_k_retrieval must be a positive integer", nil)
			return
		}
		if req.ScoreThreshold != nil && (*req.ScoreThreshold < 0 || *req.ScoreThreshold > 1) {
			utils.RespondWithBadRequest(c, "score_threshold must be between 0.0 and 1.0", nil)
			return
		}

		resp := qaService.AnswerQuery(c.Request.Context(), req)
		c.JSON(http.StatusOK, resp)
	}
}
