package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// placeholderToken satisfies langchaingo for self-hosted OpenAI-compatible servers without auth.
const placeholderToken = "not-needed"

// LangchainCompleter implements domain.Completer over any langchaingo model.
// The schema is described in the prompt and the model is asked for JSON mode.
type LangchainCompleter struct {
	model          llms.Model
	modelName      string
	defaultTimeout time.Duration
}

func NewLangchainCompleter(model llms.Model, modelName string, defaultTimeout time.Duration) *LangchainCompleter {
	return &LangchainCompleter{model: model, modelName: modelName, defaultTimeout: defaultTimeout}
}

// NewOllamaCompleter talks to a local ollama server.
func NewOllamaCompleter(serverURL, model string, timeout time.Duration) (*LangchainCompleter, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama model name cannot be empty")
	}
	opts := []ollama.Option{ollama.WithModel(model), ollama.WithFormat("json")}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangchainCompleter(llm, model, timeout), nil
}

// NewOpenAICompatibleCompleter talks to any server exposing the OpenAI chat API.
func NewOpenAICompatibleCompleter(baseURL, apiKey, model string, timeout time.Duration) (*LangchainCompleter, error) {
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if apiKey == "" {
		apiKey = placeholderToken
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI-compatible client: %w", err)
	}
	return NewLangchainCompleter(llm, model, timeout), nil
}

func (c *LangchainCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	l := logger.Get()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	system := req.System
	if len(req.Schema) > 0 {
		schema, err := describeSchema(req.Schema)
		if err != nil {
			return "", domain.NewLLMError(domain.LLMClient, err)
		}
		system += "\n\nRespond with ONLY a JSON object matching this JSON schema:\n" + schema
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(req.Temperature),
		llms.WithJSONMode(),
	)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			l.Error("LLM request timed out", zap.String("request", req.Name), zap.Duration("latency", latency))
		} else {
			l.Error("Failed to get response from LLM", zap.String("request", req.Name), zap.Error(err))
		}
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewLLMError(domain.LLMInvalidResponse, errors.New("empty response"))
	}

	raw := resp.Choices[0].Content
	l.Debug("Raw LLM response received",
		zap.String("request", req.Name),
		zap.String("model", c.modelName),
		zap.Duration("latency", latency),
		zap.String("raw_response", raw))
	return ExtractJSONObject(raw)
}

var _ domain.Completer = (*LangchainCompleter)(nil)
