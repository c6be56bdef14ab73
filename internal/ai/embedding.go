package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"notesage/internal/apperr"
)

// Embed returns the embedding vector for one text. The response must
// be a numeric array of exactly cfg.Dim elements; anything else fails
// hard, because a wrong-shape vector would silently corrupt similarity
// search once stored.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.KindEmbedding, "embedding input is empty")
	}

	if err := c.embedLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter wait failed: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":           cfg.Model,
		"input":           text,
		"encoding_format": "float",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbedding, "embedding request failed", err).AsTransient()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, classifyStatus(apperr.KindEmbedding, resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindEmbedding, "parse embedding json failed", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, apperr.New(apperr.KindEmbedding, "empty embedding in response")
	}

	vec := parsed.Data[0].Embedding
	if cfg.Dim > 0 && len(vec) != cfg.Dim {
		return nil, apperr.New(
			apperr.KindEmbedding,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(vec), cfg.Dim),
		)
	}
	return vec, nil
}
