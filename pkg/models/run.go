package models

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary is the history record written once per processed example.
type RunSummary struct {
	ID           uuid.UUID         `json:"id"`
	ExampleIndex int               `json:"example_index"`
	Example      map[string]string `json:"example,omitempty"`
	SearchKey    string            `json:"search_key"`

	// Discovery outcome
	Satisfied    bool     `json:"satisfied"`
	TargetCount  int      `json:"target_count"`
	PagesFetched int      `json:"pages_fetched"`
	FetchedCount int      `json:"fetched_count"`
	MatchedCount int      `json:"matched_count"`
	ChosenCount  int      `json:"chosen_count"`
	StopReason   string   `json:"stop_reason"`
	Rejections   []string `json:"rejections,omitempty"`

	// Output references
	CandidatesFile      string  `json:"candidates_file,omitempty"`
	WarehouseOutputFile *string `json:"warehouse_output_file"`
	WarehouseRows       int     `json:"warehouse_rows"`
	WarehouseStrategy   string  `json:"warehouse_strategy,omitempty"`
	WarehouseError      string  `json:"warehouse_error,omitempty"`
	Error               string  `json:"error,omitempty"`

	// Generation usage for this run only
	LLMCalls         int     `json:"llm_calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}
