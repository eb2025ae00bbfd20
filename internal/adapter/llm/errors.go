package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"lingo-quiz/internal/domain"
)

var statusCodePattern = regexp.MustCompile(`status code:? (\d{3})`)

// kindForStatus maps an HTTP status from the provider onto a retry class.
func kindForStatus(code int) domain.LLMErrorKind {
	switch {
	case code == 429 || code >= 500:
		return domain.LLMTransient
	case code >= 400:
		return domain.LLMClient
	default:
		return domain.LLMTransient
	}
}

// classify wraps a provider error. Errors that already carry a kind are kept.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var llmErr *domain.LLMError
	if errors.As(err, &llmErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewLLMError(domain.LLMTransient, err)
	}
	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return domain.NewLLMError(kindForStatus(code), err)
	}
	return domain.NewLLMError(domain.LLMTransient, err)
}
