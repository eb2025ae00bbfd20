package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CompletionRequest is one structured call to the language model.
type CompletionRequest struct {
	// Name identifies the response schema (e.g. "quiz_question").
	Name        string
	System      string
	Prompt      string
	Schema      map[string]any
	Temperature float64
	Timeout     time.Duration
}

// Completer returns the model's raw JSON object for a request.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// LLMErrorKind drives the retry decision.
type LLMErrorKind string

const (
	// LLMTransient covers timeouts, rate limits, connection and 5xx failures.
	LLMTransient LLMErrorKind = "transient"
	// LLMInvalidResponse covers unparseable or schema-invalid output.
	LLMInvalidResponse LLMErrorKind = "invalid_response"
	// LLMClient covers requests the provider rejected as malformed or unauthorized.
	LLMClient LLMErrorKind = "client"
)

type LLMError struct {
	Kind LLMErrorKind
	Err  error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm %s error: %v", e.Kind, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func NewLLMError(kind LLMErrorKind, err error) *LLMError {
	return &LLMError{Kind: kind, Err: err}
}

// IsRetryableLLMError is false only for client errors and for parent context cancellation.
func IsRetryableLLMError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Kind != LLMClient
	}
	return true
}
