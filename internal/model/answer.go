package model

// ChatTurn is one prior exchange turn supplied with a question.
// Role is "user" or "assistant".
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source is a truncated excerpt of a retrieved chunk shown alongside
// an answer.
type Source struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Answer is the response to a question: the completion text plus the
// excerpts it was grounded on. Sources is empty when retrieval found
// nothing and the canned no-information answer was returned.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IngestionResult reports the outcome of processing one file.
type IngestionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
	Status  string `json:"status"`
}
