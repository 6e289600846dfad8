package llm

import (
	"context"
	"sync"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// NewStaticMockLLMClient returns a mock that always answers content with
// fixed token counts.
func NewStaticMockLLMClient(content string) *MockLLMClient {
	m := NewMockLLMClient()
	m.GenerateResponseFunc = func(context.Context, string, string, float64) (*GenerateResponseResult, error) {
		return &GenerateResponseResult{Content: content, PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}, nil
	}
	return m
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

// Calls returns how many times GenerateResponse was invoked.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts received so far.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements LLMClient.
func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}

// Reset clears call tracking.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.prompts = nil
}
