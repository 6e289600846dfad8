package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient talks to Anthropic-style message endpoints, which
// authenticate with an x-api-key header instead of a Bearer token.
type AnthropicClient struct {
	client    *anthropic.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicClient creates a client for an Anthropic-compatible endpoint.
// An empty Endpoint uses the library's default base URL.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for anthropic endpoints")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: maxTokens,
		logger:    logger.Named("llm"),
	}, nil
}

// GenerateResponse sends one user message and returns the first text block.
func (c *AnthropicClient) GenerateResponse(
	ctx context.Context,
	prompt string,
	systemMessage string,
	temperature float64,
) (*GenerateResponseResult, error) {
	temp := float32(temperature)
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	}
	if systemMessage != "" {
		req.System = systemMessage
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text = *block.Text
			break
		}
	}
	if text == "" {
		return nil, NewError(ErrorTypeEmpty, "no text block in response", false, nil)
	}

	c.logger.Debug("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResponseResult{
		Content:          text,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *AnthropicClient) GetEndpoint() string {
	return c.endpoint
}
