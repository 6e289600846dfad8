// Package llm provides the text generation collaborator used to draft and
// batch SQL: OpenAI-compatible and Anthropic clients, a guarded wrapper with
// timeouts, a circuit breaker and run-scoped cost accounting.
package llm

import (
	"context"
)

// LLMClient is a single text-in/text-out generation call.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends one prompt and returns the completion text.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// GenerateResponseResult is one completion with its token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64 // set by GuardedClient when prices are configured
}

// Ensure the clients implement LLMClient at compile time.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*GuardedClient)(nil)
	_ LLMClient = (*MockLLMClient)(nil)
)
