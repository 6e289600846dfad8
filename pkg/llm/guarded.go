package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCallTimeout bounds a single generation call.
const DefaultCallTimeout = 60 * time.Second

// GuardedConfig configures a GuardedClient. Zero values take defaults.
type GuardedConfig struct {
	Timeout       time.Duration
	Pricing       *Pricing
	Breaker       CircuitBreakerConfig
	TranscriptDir string
}

// GuardedClient wraps a provider client with a per-call timeout, a circuit
// breaker and cost accounting. Usage is recorded into the *Usage carried by
// the call's context, so concurrent runs sharing one client never mix totals.
type GuardedClient struct {
	inner      LLMClient
	timeout    time.Duration
	pricing    Pricing
	breaker    *CircuitBreaker
	transcript *TranscriptWriter
	logger     *zap.Logger
}

// NewGuardedClient wraps inner.
func NewGuardedClient(inner LLMClient, cfg GuardedConfig, logger *zap.Logger) (*GuardedClient, error) {
	if inner == nil {
		return nil, fmt.Errorf("guarded client requires an inner client")
	}
	transcript, err := NewTranscriptWriter(cfg.TranscriptDir)
	if err != nil {
		return nil, err
	}
	pricing := DefaultPricing()
	if cfg.Pricing != nil {
		pricing = *cfg.Pricing
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &GuardedClient{
		inner:      inner,
		timeout:    timeout,
		pricing:    pricing,
		breaker:    NewCircuitBreaker(cfg.Breaker),
		transcript: transcript,
		logger:     logger.Named("llm-guard"),
	}, nil
}

// GenerateResponse implements LLMClient. Failures are returned as *Error; an
// empty completion is a failure of type ErrorTypeEmpty.
func (g *GuardedClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	usage := UsageFromContext(ctx)
	purpose := PurposeFromContext(ctx)

	if ok, err := g.breaker.Allow(); !ok {
		usage.RecordFailure()
		g.logger.Warn("Generation skipped, circuit open", zap.String("purpose", purpose), zap.Error(err))
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prefix := g.transcript.WriteRequest(uuid.New(), g.inner.GetModel(), purpose, systemMessage, prompt)
	start := time.Now()

	result, err := g.inner.GenerateResponse(callCtx, prompt, systemMessage, temperature)
	if err == nil && (result == nil || strings.TrimSpace(result.Content) == "") {
		err = NewError(ErrorTypeEmpty, "generation returned no content", false, nil)
	}
	elapsed := time.Since(start)

	if err != nil {
		// A caller cancelling the run says nothing about endpoint health.
		if ctx.Err() == nil {
			g.breaker.RecordFailure()
		}
		usage.RecordFailure()
		g.transcript.WriteError(prefix, err, elapsed)

		var llmErr *Error
		if !errors.As(err, &llmErr) {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				llmErr = NewError(ErrorTypeTimeout, fmt.Sprintf("no response within %v", g.timeout), true, err)
			} else {
				llmErr = ClassifyError(err)
			}
		}
		g.logger.Warn("Generation failed",
			zap.String("purpose", purpose),
			zap.String("type", string(llmErr.Type)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, llmErr
	}

	g.breaker.RecordSuccess()
	result.CostUSD = g.pricing.Cost(result.PromptTokens, result.CompletionTokens)
	usage.Record(result)
	g.transcript.WriteResponse(prefix, result.Content, elapsed)

	g.logger.Debug("Generation completed",
		zap.String("purpose", purpose),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens),
		zap.Float64("cost_usd", result.CostUSD),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// GetModel implements LLMClient.
func (g *GuardedClient) GetModel() string { return g.inner.GetModel() }

// GetEndpoint implements LLMClient.
func (g *GuardedClient) GetEndpoint() string { return g.inner.GetEndpoint() }

// BreakerState exposes the circuit state for diagnostics.
func (g *GuardedClient) BreakerState() CircuitState { return g.breaker.State() }
