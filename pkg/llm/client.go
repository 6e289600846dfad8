package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
)

// Client provides access to OpenAI-compatible chat completion endpoints.
// Requests authenticate with a Bearer token.
type Client struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider  string        // "openai", "anthropic" or "auto"
	Endpoint  string        // Base URL, e.g., "https://api.openai.com/v1"
	Model     string        // Model name, e.g., "gpt-4o-mini"
	APIKey    string        // Optional for local endpoints
	MaxTokens int           // Completion token cap, 0 for provider default
	Timeout   time.Duration // Per-call bound applied by GuardedClient
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion response with usage stats.
// An empty systemMessage sends the prompt as the only message.
func (c *Client) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	var messages []openai.ChatCompletionMessage
	if systemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemMessage})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		classified := ClassifyError(err)
		c.logger.Error("LLM request failed",
			zap.String("endpoint", logging.SanitizeConnectionString(c.endpoint)),
			zap.String("type", string(classified.Type)),
			zap.Bool("retryable", classified.Retryable),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, classified
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeEmpty, "no choices in response", false, nil)
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		c.logger.Warn("LLM response truncated at max tokens",
			zap.Int("max_tokens", c.maxTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	}

	c.logger.Debug("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *Client) GetEndpoint() string {
	return c.endpoint
}
