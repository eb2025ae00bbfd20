package llm

import (
	"context"
	"errors"
	"math"

	"lingo-quiz/internal/domain"

	"golang.org/x/time/rate"
)

// RateLimitedCompleter bounds the request rate of a process towards the provider.
type RateLimitedCompleter struct {
	next    domain.Completer
	limiter *rate.Limiter
}

func NewRateLimitedCompleter(next domain.Completer, requestsPerSecond float64, burst int) *RateLimitedCompleter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(requestsPerSecond)))
	}
	return &RateLimitedCompleter{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (c *RateLimitedCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", domain.NewLLMError(domain.LLMTransient, err)
	}
	return c.next.Complete(ctx, req)
}

var _ domain.Completer = (*RateLimitedCompleter)(nil)
