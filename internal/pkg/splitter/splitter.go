// Package splitter cuts extracted text into overlapping fixed-size
// chunks, the unit of embedding and retrieval.
package splitter

import "strings"

// DefaultChunkSize targets fast embedding calls over deep context.
const DefaultChunkSize = 2000

// DefaultOverlap is deliberately small; it only guards against cutting
// a key phrase exactly at a boundary.
const DefaultOverlap = 20

// Splitter splits text into ordered, overlapping chunks. Splitting is
// a pure function of the input and the two parameters, so chunk
// boundaries are stable across runs.
type Splitter struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the chunks of text in document order. Empty input
// produces no chunks; no produced chunk is ever empty.
func (s Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := s.chunkSize - s.overlap

	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
