package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lingo-quiz/internal/domain"
	"lingo-quiz/internal/logger"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAICompleter uses strict JSON-schema structured output.
type OpenAICompleter struct {
	client         *openai.Client
	model          string
	defaultTimeout time.Duration
}

func NewOpenAICompleter(apiKey, baseURL, model string, timeout time.Duration) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          model,
		defaultTimeout: timeout,
	}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
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

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(req.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if len(req.Schema) > 0 {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Strict: true,
				Schema: jsonSchema(req.Schema),
			},
		}
	} else {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	latency := time.Since(start)
	if err != nil {
		l.Error("OpenAI request failed",
			zap.String("request", req.Name),
			zap.Duration("latency", latency),
			zap.Error(err))
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewLLMError(domain.LLMInvalidResponse, errors.New("empty response from LLM"))
	}

	content := resp.Choices[0].Message.Content
	l.Debug("OpenAI completion finished",
		zap.String("request", req.Name),
		zap.Duration("latency", latency),
		zap.Int("tokens", resp.Usage.TotalTokens))
	return ExtractJSONObject(content)
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return domain.NewLLMError(kindForStatus(apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return domain.NewLLMError(kindForStatus(reqErr.HTTPStatusCode), err)
	}
	return classify(err)
}

var _ domain.Completer = (*OpenAICompleter)(nil)
