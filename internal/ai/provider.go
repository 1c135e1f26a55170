package ai

import (
	"context"
	"time"
)

// LLMProvider sends a prompt to an LLM and returns the raw text response.
// Temperature and output limits are fixed per provider at construction.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderOptions are the per-request settings shared by all providers.
type ProviderOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // applied to every Complete call; 0 disables
}

const systemPrompt = "You are a precise job-matching assistant. You answer with bare JSON only, no prose and no markdown."

// withTimeout bounds one request when a timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
