package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesage/internal/apperr"
)

func TestKindOf(t *testing.T) {
	err := apperr.New(apperr.KindDownload, "fetch failed")

	assert.Equal(t, apperr.KindDownload, apperr.KindOf(err))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("plain")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(nil))
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	inner := apperr.New(apperr.KindEmbedding, "dimension mismatch")
	outer := fmt.Errorf("ingest file failed: %w", inner)

	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(outer))
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Wrap(apperr.KindStore, "insert chunk failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store_failed")
	assert.Contains(t, err.Error(), "insert chunk failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsTransient(t *testing.T) {
	retryable := apperr.New(apperr.KindCompletion, "rate limited").AsTransient()
	permanent := apperr.New(apperr.KindCompletion, "invalid api key")

	assert.True(t, apperr.IsTransient(retryable))
	assert.True(t, apperr.IsTransient(fmt.Errorf("wrapped: %w", retryable)))
	assert.False(t, apperr.IsTransient(permanent))
	assert.False(t, apperr.IsTransient(errors.New("plain")))
}

func TestWithHint(t *testing.T) {
	err := apperr.New(apperr.KindProcessingLimit, "too many chunks").
		WithHint("try uploading fewer or smaller files")

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "try uploading fewer or smaller files", ae.Hint)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unsupported_format", apperr.KindUnsupportedFormat.String())
	assert.Equal(t, "processing_limit", apperr.KindProcessingLimit.String())
	assert.Equal(t, "internal", apperr.KindInternal.String())
}
