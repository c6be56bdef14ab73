package model

import (
	"time"

	"github.com/google/uuid"
)

// Metadata keys attached to every stored chunk.
const (
	MetaFileName    = "fileName"
	MetaChunkNumber = "chunkNumber"
	MetaTotalChunks = "totalChunks"
	MetaTimestamp   = "timestamp"
	MetaPageCount   = "pageCount"
)

// Chunk is the unit of storage and retrieval: one bounded slice of a
// source document's text together with its embedding vector. Rows are
// written once during ingestion and never mutated.
type Chunk struct {
	ID        int64          `json:"id"`
	OwnerID   string         `json:"owner_id"`
	BatchID   uuid.UUID      `json:"batch_id"`
	Content   string         `json:"content"`
	Embedding []float32      `json:"-"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// ScoredChunk is a retrieval hit: chunk content plus its cosine
// similarity to the query, ordered descending by the store.
type ScoredChunk struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float32        `json:"similarity"`
}

// FileName returns the fileName metadata value, or "" when absent.
func (c ScoredChunk) FileName() string {
	if c.Metadata == nil {
		return ""
	}
	name, _ := c.Metadata[MetaFileName].(string)
	return name
}
