// Package ai wraps the hosted OpenAI-compatible embedding and chat
// completion APIs. Failures come back tagged with a kind and a
// transient flag so callers can tell rate limits from bad credentials
// without inspecting message text.
package ai

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"notesage/internal/apperr"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// EmbeddingConfig holds API settings for text embedding. Dim is the
// expected vector length; responses of any other shape are rejected.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int
}

type OpenAICompatibleClient struct {
	httpClient *http.Client

	// embedLimiter paces embedding calls client-side so a long chunk
	// sequence stays under the provider's rate limit.
	embedLimiter *rate.Limiter
}

func NewOpenAICompatibleClient(embedRatePerSec float64) *OpenAICompatibleClient {
	if embedRatePerSec <= 0 {
		embedRatePerSec = 5
	}
	return &OpenAICompatibleClient{
		httpClient:   &http.Client{Timeout: 90 * time.Second},
		embedLimiter: rate.NewLimiter(rate.Limit(embedRatePerSec), 1),
	}
}

// classifyStatus tags a non-2xx provider response. 429 and 5xx are
// transient; 401/403 mean the API key is wrong and retrying cannot help.
func classifyStatus(kind apperr.Kind, status int, body string) *apperr.Error {
	e := &apperr.Error{
		Kind:    kind,
		Message: "provider returned status " + http.StatusText(status) + ": " + body,
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		e.Transient = true
		e.Hint = "the provider is rate limiting or unavailable, retry later"
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		e.Hint = "check the configured API key"
	}
	return e
}
