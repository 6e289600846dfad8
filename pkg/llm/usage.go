package llm

import (
	"context"
	"sync"
)

type contextKey string

const (
	usageContextKey   contextKey = "llm_usage"
	purposeContextKey contextKey = "llm_purpose"
)

// Pricing converts token counts into dollars, per million tokens.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPricing matches gpt-4o-mini list prices.
func DefaultPricing() Pricing {
	return Pricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}
}

// Cost returns the dollar cost of one call.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1_000_000*p.InputPerMillion +
		float64(completionTokens)/1_000_000*p.OutputPerMillion
}

// Usage accumulates generation calls for one run. It is safe for concurrent
// use; each run creates its own and carries it in the context.
type Usage struct {
	mu               sync.Mutex
	calls            int
	failures         int
	promptTokens     int
	completionTokens int
	costUSD          float64
}

// UsageSnapshot is a point-in-time copy of a Usage.
type UsageSnapshot struct {
	Calls            int     `json:"calls"`
	Failures         int     `json:"failures"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// NewUsage returns an empty accumulator.
func NewUsage() *Usage {
	return &Usage{}
}

// Record adds a successful call.
func (u *Usage) Record(res *GenerateResponseResult) {
	if u == nil || res == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.promptTokens += res.PromptTokens
	u.completionTokens += res.CompletionTokens
	u.costUSD += res.CostUSD
}

// RecordFailure adds a failed or refused call.
func (u *Usage) RecordFailure() {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.failures++
}

// Snapshot returns the current totals.
func (u *Usage) Snapshot() UsageSnapshot {
	if u == nil {
		return UsageSnapshot{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageSnapshot{
		Calls:            u.calls,
		Failures:         u.failures,
		PromptTokens:     u.promptTokens,
		CompletionTokens: u.completionTokens,
		CostUSD:          u.costUSD,
	}
}

// WithUsage attaches a run-scoped accumulator to ctx.
func WithUsage(ctx context.Context, u *Usage) context.Context {
	return context.WithValue(ctx, usageContextKey, u)
}

// UsageFromContext returns the accumulator attached to ctx, or nil.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageContextKey).(*Usage)
	return u
}

// WithPurpose labels generation calls made with ctx, for logs and transcripts.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeContextKey, purpose)
}

// PurposeFromContext returns the label set by WithPurpose, or "generate".
func PurposeFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(purposeContextKey).(string); ok && p != "" {
		return p
	}
	return "generate"
}
