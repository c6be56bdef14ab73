package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesage/internal/ai"
	"notesage/internal/apperr"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func floatVector(n int) []float32 {
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return vec
}

func TestEmbed_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": floatVector(8)}},
		})
	})

	client := ai.NewOpenAICompatibleClient(100)
	cfg := ai.EmbeddingConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-ada-002", Dim: 8}

	vec, err := client.Embed(context.Background(), cfg, "  hello world  ")

	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "hello world", gotBody["input"])
	assert.Equal(t, "text-embedding-ada-002", gotBody["model"])
	assert.Equal(t, "float", gotBody["encoding_format"])
}

func TestEmbed_EmptyInput(t *testing.T) {
	client := ai.NewOpenAICompatibleClient(100)

	_, err := client.Embed(context.Background(), ai.EmbeddingConfig{BaseURL: "http://unused"}, "   ")

	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": floatVector(4)}},
		})
	})

	client := ai.NewOpenAICompatibleClient(100)
	cfg := ai.EmbeddingConfig{BaseURL: srv.URL, Dim: 8}

	_, err := client.Embed(context.Background(), cfg, "hello")

	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "4 dimensions, expected 8")
}

func TestEmbed_RateLimitedIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := ai.NewOpenAICompatibleClient(100)

	_, err := client.Embed(context.Background(), ai.EmbeddingConfig{BaseURL: srv.URL, Dim: 8}, "hello")

	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))
	assert.True(t, apperr.IsTransient(err))
}

func TestEmbed_UnauthorizedIsPermanent(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := ai.NewOpenAICompatibleClient(100)

	_, err := client.Embed(context.Background(), ai.EmbeddingConfig{BaseURL: srv.URL, Dim: 8}, "hello")

	require.Error(t, err)
	assert.False(t, apperr.IsTransient(err))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Hint, "API key")
}

func TestEmbed_EmptyData(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	client := ai.NewOpenAICompatibleClient(100)

	_, err := client.Embed(context.Background(), ai.EmbeddingConfig{BaseURL: srv.URL, Dim: 8}, "hello")

	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))
}

func TestComplete_Success(t *testing.T) {
	var gotBody map[string]any
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Blue."}},
			},
		})
	})

	client := ai.NewOpenAICompatibleClient(100)
	cfg := ai.ChatConfig{BaseURL: srv.URL, Model: "gpt-3.5-turbo", Temperature: 0.3, MaxTokens: 500}

	answer, err := client.Complete(context.Background(), cfg, []ai.ChatMessage{
		{Role: "system", Content: "You are a helpful AI assistant."},
		{Role: "user", Content: "What color is the sky?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Blue.", answer)
	assert.Equal(t, "gpt-3.5-turbo", gotBody["model"])
	assert.InDelta(t, 0.3, gotBody["temperature"].(float64), 1e-9)
	assert.InDelta(t, 500, gotBody["max_tokens"].(float64), 1e-9)
	assert.Equal(t, false, gotBody["stream"])
}

func TestComplete_NoChoices(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	client := ai.NewOpenAICompatibleClient(100)

	_, err := client.Complete(context.Background(), ai.ChatConfig{BaseURL: srv.URL}, nil)

	require.Error(t, err)
	assert.Equal(t, apperr.KindCompletion, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "invalid response from chat completion API")
}

func TestComplete_ServerErrorIsTransient(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	client := ai.NewOpenAICompatibleClient(100)

	_, err := client.Complete(context.Background(), ai.ChatConfig{BaseURL: srv.URL}, nil)

	require.Error(t, err)
	assert.Equal(t, apperr.KindCompletion, apperr.KindOf(err))
	assert.True(t, apperr.IsTransient(err))
}
