package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notesage/internal/apperr"
)

// ErrorBody is the JSON error envelope returned on every failure.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func Error(c *gin.Context, status int, errorName, message, hint string) {
	c.JSON(status, ErrorBody{
		Error:   errorName,
		Message: message,
		Hint:    hint,
	})
}

// FromErr maps a pipeline error onto the HTTP surface. In production
// unclassified errors are redacted to a generic message; user-fixable
// failures keep their message everywhere.
func FromErr(c *gin.Context, err error, production bool) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		message := "An unexpected error occurred"
		if !production {
			message = err.Error()
		}
		Error(c, http.StatusInternalServerError, "Server Error", message, "")
		return
	}

	status, errorName := classify(ae.Kind)
	message := ae.Message
	if production && status >= 500 {
		message = "An unexpected error occurred"
	}
	Error(c, status, errorName, message, ae.Hint)
}

func classify(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.KindBadRequest:
		return http.StatusBadRequest, "Bad Request"
	case apperr.KindUnsupportedFormat, apperr.KindNoContent, apperr.KindDownload:
		return http.StatusBadRequest, "File Processing Error"
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, "Unauthorized"
	case apperr.KindProcessingLimit:
		return http.StatusLoopDetected, "Processing Limit Exceeded"
	case apperr.KindEmbedding, apperr.KindCompletion:
		return http.StatusInternalServerError, "AI Service Error"
	case apperr.KindStore:
		return http.StatusInternalServerError, "Database Service Error"
	default:
		return http.StatusInternalServerError, "Server Error"
	}
}
