package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"notesage/internal/app"
	"notesage/internal/model"
	"notesage/internal/transport/http/middleware"
	"notesage/internal/transport/http/response"
)

type AskHandler struct {
	answerService *app.AnswerService
	production    bool
}

type AskRequest struct {
	Question    string           `json:"question"`
	ChatHistory []model.ChatTurn `json:"chatHistory"`
}

func NewAskHandler(answerService *app.AnswerService, production bool) *AskHandler {
	return &AskHandler{answerService: answerService, production: production}
}

func (h *AskHandler) Ask(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Unauthorized", "Invalid token payload", "")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Bad Request", "Invalid request payload", "")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.Error(c, http.StatusBadRequest, "Bad Request", "No question provided", "")
		return
	}

	answer, err := h.answerService.Ask(c.Request.Context(), userID, req.Question, req.ChatHistory)
	if err != nil {
		response.FromErr(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, answer)
}
