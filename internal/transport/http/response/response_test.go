package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesage/internal/apperr"
	"notesage/internal/transport/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, err error, production bool) (int, response.ErrorBody) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	response.FromErr(c, err, production)

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestFromErr_BadRequest(t *testing.T) {
	status, body := render(t, apperr.New(apperr.KindBadRequest, "no question provided"), false)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Bad Request", body.Error)
	assert.Equal(t, "no question provided", body.Message)
	assert.Empty(t, body.Hint)
}

func TestFromErr_FileProcessing(t *testing.T) {
	for _, kind := range []apperr.Kind{apperr.KindUnsupportedFormat, apperr.KindNoContent, apperr.KindDownload} {
		status, body := render(t, apperr.New(kind, "something about the file"), false)

		assert.Equal(t, http.StatusBadRequest, status, kind.String())
		assert.Equal(t, "File Processing Error", body.Error, kind.String())
	}
}

func TestFromErr_Unauthorized(t *testing.T) {
	status, body := render(t, apperr.New(apperr.KindUnauthorized, "Invalid authentication token"), false)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body.Error)
}

func TestFromErr_ProcessingLimit(t *testing.T) {
	err := apperr.New(apperr.KindProcessingLimit, "too many chunks").
		WithHint("try uploading fewer or smaller files")

	status, body := render(t, err, false)

	assert.Equal(t, http.StatusLoopDetected, status)
	assert.Equal(t, "Processing Limit Exceeded", body.Error)
	assert.Equal(t, "try uploading fewer or smaller files", body.Hint)
}

func TestFromErr_AIService(t *testing.T) {
	status, body := render(t, apperr.New(apperr.KindEmbedding, "provider returned status Too Many Requests"), false)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "AI Service Error", body.Error)
}

func TestFromErr_Store(t *testing.T) {
	status, body := render(t, apperr.New(apperr.KindStore, "insert chunk failed"), false)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Database Service Error", body.Error)
}

func TestFromErr_UntaggedError(t *testing.T) {
	status, body := render(t, errors.New("something unexpected"), false)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Server Error", body.Error)
	assert.Equal(t, "something unexpected", body.Message)
}

func TestFromErr_ProductionRedactsServerErrors(t *testing.T) {
	status, body := render(t, apperr.New(apperr.KindStore, "dsn secret leaked in message"), true)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An unexpected error occurred", body.Message)
}

func TestFromErr_ProductionKeepsClientErrorMessages(t *testing.T) {
	status, body := render(t, apperr.New(apperr.KindUnsupportedFormat, "currently supporting only pdf, txt files for faster processing"), true)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "currently supporting only pdf, txt files for faster processing", body.Message)
}
