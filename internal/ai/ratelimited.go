package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedProvider spaces requests to the wrapped provider.
type RateLimitedProvider struct {
	inner   LLMProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows rps requests per second with a burst of one.
// A non-positive rps disables limiting.
func NewRateLimitedProvider(inner LLMProvider, rps float64) *RateLimitedProvider {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimitedProvider{inner: inner, limiter: rate.NewLimiter(limit, 1)}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, prompt)
}
