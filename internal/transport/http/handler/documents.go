package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notesage/internal/app"
	"notesage/internal/transport/http/middleware"
	"notesage/internal/transport/http/response"
)

type DocumentsHandler struct {
	ingestService  *app.IngestService
	cleanupService *app.CleanupService
	production     bool
}

type ProcessRequest struct {
	Files []string `json:"files"`
}

func NewDocumentsHandler(ingestService *app.IngestService, cleanupService *app.CleanupService, production bool) *DocumentsHandler {
	return &DocumentsHandler{
		ingestService:  ingestService,
		cleanupService: cleanupService,
		production:     production,
	}
}

// Process ingests a batch of uploaded files given their signed URLs.
func (h *DocumentsHandler) Process(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Unauthorized", "Invalid token payload", "")
		return
	}

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Bad Request", "Invalid request payload", "")
		return
	}
	if len(req.Files) == 0 {
		response.Error(c, http.StatusBadRequest, "Bad Request", "No files provided", "")
		return
	}

	results, err := h.ingestService.IngestBatch(c.Request.Context(), userID, req.Files)
	if err != nil {
		response.FromErr(c, err, h.production)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Files processed successfully",
		"results": results,
	})
}

// Cleanup force-clears the caller's documents.
func (h *DocumentsHandler) Cleanup(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Unauthorized", "Invalid token payload", "")
		return
	}

	result, err := h.cleanupService.Cleanup(c.Request.Context(), userID)
	if err != nil {
		response.FromErr(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, result)
}
