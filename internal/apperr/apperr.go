// Package apperr defines the error taxonomy shared by the ingestion and
// answering pipelines. External-call wrappers return tagged errors so that
// callers branch on Kind instead of matching provider message text.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindUnsupportedFormat
	KindNoContent
	KindDownload
	KindEmbedding
	KindCompletion
	KindStore
	KindProcessingLimit
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindNoContent:
		return "no_content"
	case KindDownload:
		return "download_failed"
	case KindEmbedding:
		return "embedding_failed"
	case KindCompletion:
		return "completion_failed"
	case KindStore:
		return "store_failed"
	case KindProcessingLimit:
		return "processing_limit"
	default:
		return "internal"
	}
}

// Error carries a kind, a user-facing message, an optional hint for the
// caller, and a transient flag for failures worth retrying.
type Error struct {
	Kind      Kind
	Message   string
	Hint      string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) AsTransient() *Error {
	e.Transient = true
	return e
}

// KindOf returns the kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsTransient reports whether err is tagged as retryable.
func IsTransient(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Transient
	}
	return false
}
