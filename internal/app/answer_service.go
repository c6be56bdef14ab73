package app

import (
	"context"
	"log"
	"strings"

	"notesage/internal/ai"
	"notesage/internal/apperr"
	"notesage/internal/model"
)

// NoInformationAnswer is returned without calling the completion API
// when retrieval finds nothing relevant.
const NoInformationAnswer = "I don't have any relevant information to answer this question. Please try uploading some documents first."

const systemPromptPrefix = "You are a helpful AI assistant. Be concise. Context:\n"

// ChunkSearcher is the retrieval slice of the vector store.
type ChunkSearcher interface {
	Search(ctx context.Context, ownerID string, queryEmbedding []float32, k int, threshold float32) ([]model.ScoredChunk, error)
}

// CompletionClient generates the final answer text.
type CompletionClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// TurnHistory reads and records recent chat turns per user.
type TurnHistory interface {
	GetHistory(ctx context.Context, ownerID string) ([]model.ChatTurn, bool, error)
	AppendTurns(ctx context.Context, ownerID string, turns ...model.ChatTurn) error
}

type RetrievalConfig struct {
	TopK               int
	Threshold          float32
	ChunkContextChars  int
	TotalContextChars  int
	HistoryTurns       int
	SourceCount        int
	SourceExcerptChars int
}

// AnswerService answers questions by retrieving the most similar
// stored chunks and conditioning a chat completion on them.
type AnswerService struct {
	store     ChunkSearcher
	embedder  EmbeddingClient
	completer CompletionClient
	history   TurnHistory
	embCfg    ai.EmbeddingConfig
	chatCfg   ai.ChatConfig
	config    RetrievalConfig
}

func NewAnswerService(
	store ChunkSearcher,
	embedder EmbeddingClient,
	completer CompletionClient,
	history TurnHistory,
	embCfg ai.EmbeddingConfig,
	chatCfg ai.ChatConfig,
	config RetrievalConfig,
) *AnswerService {
	if config.TopK <= 0 {
		config.TopK = 3
	}
	if config.Threshold <= 0 {
		config.Threshold = 0.5
	}
	if config.ChunkContextChars <= 0 {
		config.ChunkContextChars = 1000
	}
	if config.TotalContextChars <= 0 {
		config.TotalContextChars = 3000
	}
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = 3
	}
	if config.SourceCount <= 0 {
		config.SourceCount = 2
	}
	if config.SourceExcerptChars <= 0 {
		config.SourceExcerptChars = 200
	}
	return &AnswerService{
		store:     store,
		embedder:  embedder,
		completer: completer,
		history:   history,
		embCfg:    embCfg,
		chatCfg:   chatCfg,
		config:    config,
	}
}

// Ask retrieves the top-k similar chunks for the question and returns
// an answer grounded on them. An empty store short-circuits to the
// canned no-information answer with zero completion calls.
func (s *AnswerService) Ask(ctx context.Context, ownerID, question string, chatHistory []model.ChatTurn) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperr.New(apperr.KindBadRequest, "no question provided")
	}

	queryEmbedding, err := s.embedder.Embed(ctx, s.embCfg, question)
	if err != nil {
		return nil, err
	}

	hits, err := s.store.Search(ctx, ownerID, queryEmbedding, s.config.TopK, s.config.Threshold)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &model.Answer{
			Answer:  NoInformationAnswer,
			Sources: []model.Source{},
		}, nil
	}

	messages := s.buildMessages(ctx, ownerID, question, chatHistory, hits)
	answerText, err := s.completer.Complete(ctx, s.chatCfg, messages)
	if err != nil {
		return nil, err
	}
	answerText = strings.TrimSpace(answerText)

	if s.history != nil {
		if err := s.history.AppendTurns(ctx, ownerID,
			model.ChatTurn{Role: "user", Content: question},
			model.ChatTurn{Role: "assistant", Content: answerText},
		); err != nil {
			log.Printf("ask: record history for %s failed: %v", ownerID, err)
		}
	}

	return &model.Answer{
		Answer:  answerText,
		Sources: s.sources(hits),
	}, nil
}

func (s *AnswerService) buildMessages(ctx context.Context, ownerID, question string, chatHistory []model.ChatTurn, hits []model.ScoredChunk) []ai.ChatMessage {
	if len(chatHistory) == 0 && s.history != nil {
		if cached, ok, err := s.history.GetHistory(ctx, ownerID); err == nil && ok {
			chatHistory = cached
		}
	}
	if len(chatHistory) > s.config.HistoryTurns {
		chatHistory = chatHistory[len(chatHistory)-s.config.HistoryTurns:]
	}

	messages := make([]ai.ChatMessage, 0, len(chatHistory)+2)
	messages = append(messages, ai.ChatMessage{
		Role:    "system",
		Content: systemPromptPrefix + s.buildContext(hits),
	})
	for _, turn := range chatHistory {
		role := "assistant"
		if turn.Role == "user" {
			role = "user"
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: question})
	return messages
}

// buildContext assembles the prompt context: at most ChunkContextChars
// per chunk with a source tag, blank-line separated, hard-capped at
// TotalContextChars. Later chunks lose out when earlier ones consume
// the budget; truncation is positional, not ranking aware.
func (s *AnswerService) buildContext(hits []model.ScoredChunk) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		part := truncateRunes(hit.Content, s.config.ChunkContextChars)
		if name := hit.FileName(); name != "" {
			part += " [Source: " + name + "]"
		}
		parts = append(parts, part)
	}
	return truncateRunes(strings.Join(parts, "\n\n"), s.config.TotalContextChars)
}

// sources shapes the user-visible excerpts: fewer and shorter than
// what the model actually saw, trading completeness for compactness.
func (s *AnswerService) sources(hits []model.ScoredChunk) []model.Source {
	n := s.config.SourceCount
	if n > len(hits) {
		n = len(hits)
	}
	sources := make([]model.Source, 0, n)
	for _, hit := range hits[:n] {
		sources = append(sources, model.Source{
			Content:  truncateRunes(hit.Content, s.config.SourceExcerptChars),
			Metadata: hit.Metadata,
		})
	}
	return sources
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
