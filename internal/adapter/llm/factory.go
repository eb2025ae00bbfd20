package llm

import (
	"fmt"

	"lingo-quiz/internal/config"
	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"go.uber.org/zap"
)

const (
	ProviderOllama           = "ollama"
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai-compatible"
)

// NewCompleter builds the configured provider behind the process-wide rate limiter.
func NewCompleter(cfg config.LLMConfig) (domain.Completer, error) {
	var (
		completer domain.Completer
		err       error
	)
	switch cfg.Provider {
	case ProviderOllama:
		completer, err = NewOllamaCompleter(cfg.ServerURL, cfg.Model, cfg.Timeout)
	case ProviderOpenAI:
		completer, err = NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case ProviderOpenAICompatible:
		completer, err = NewOpenAICompatibleCompleter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Get().Info("LLM completer initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Float64("requests_per_second", cfg.RequestsPerSecond))

	if cfg.RequestsPerSecond <= 0 {
		return completer, nil
	}
	return NewRateLimitedCompleter(completer, cfg.RequestsPerSecond, cfg.Burst), nil
}
