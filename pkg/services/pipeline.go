package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-discovery/pkg/config"
	"github.com/ekaya-inc/ekaya-discovery/pkg/feature"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
	"github.com/ekaya-inc/ekaya-discovery/pkg/repositories"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

// Stop reason recorded when a search key is refused before any query runs.
const StopScreened = "search_key_rejected"

// resultTimestampFormat names warehouse result files.
const resultTimestampFormat = "20060102_150405"

// PipelineDeps are the collaborators of a pipeline run.
type PipelineDeps struct {
	// SourceFor returns the discovery source for one search key's filter
	// pattern and ordering.
	SourceFor func(filterPattern, orderBy string) DiscoverySource
	Engine    DiscoveryEngine

	// Warehouse is optional; without it (or without a warehouse template)
	// runs stop after writing candidates.
	Warehouse        datasource.Datasource
	WarehouseCatalog *schema.Catalog
	Synthesizer      BatchSynthesizer

	History repositories.HistoryRepository
	Writer  repositories.ResultWriter
}

// PipelineConfig holds the settings shared by every example.
type PipelineConfig struct {
	Discovery config.DiscoveryConfig
	Rules     config.Rules

	// WarehouseTemplate is the single-member warehouse statement, e.g.
	// SELECT * FROM dbo.ORDERS WHERE MEMBER_ID = '{member_id}'.
	WarehouseTemplate string
	WarehouseParam    string // default "member_id"
	Vars              map[string]string

	PrimaryOutputDir   string
	WarehouseOutputDir string

	// OnPage, when set, receives every discovery state change.
	OnPage func(example feature.Example, state BatchState)
	// OnExample, when set, is called once per processed example.
	OnExample func(summary *models.RunSummary)
}

// PipelineReport summarizes a whole run.
type PipelineReport struct {
	Summaries []*models.RunSummary
	Skipped   []int // example indexes without a search key
	Usage     llm.UsageSnapshot
}

// Pipeline runs discovery and the warehouse lookup for every feature example.
type Pipeline interface {
	Run(ctx context.Context, examples []feature.Example) (*PipelineReport, error)
}

type pipeline struct {
	deps   PipelineDeps
	cfg    PipelineConfig
	pool   *WorkerPool
	now    func() time.Time
	logger *zap.Logger
}

// NewPipeline creates a pipeline. Examples run through a worker pool sized by
// cfg.Discovery.Concurrency.
func NewPipeline(deps PipelineDeps, cfg PipelineConfig, logger *zap.Logger) (Pipeline, error) {
	if deps.SourceFor == nil || deps.Engine == nil {
		return nil, errors.New("pipeline requires a discovery source and engine")
	}
	if deps.History == nil || deps.Writer == nil {
		return nil, errors.New("pipeline requires a history repository and result writer")
	}
	if deps.Warehouse != nil && deps.Synthesizer == nil {
		return nil, errors.New("pipeline requires a batch synthesizer for the warehouse")
	}
	if cfg.WarehouseParam == "" {
		cfg.WarehouseParam = ParamMemberID
	}
	logger = logger.Named("pipeline")
	return &pipeline{
		deps:   deps,
		cfg:    cfg,
		pool:   NewWorkerPool(WorkerPoolConfig{MaxConcurrent: cfg.Discovery.Concurrency}, logger),
		now:    time.Now,
		logger: logger,
	}, nil
}

var _ Pipeline = (*pipeline)(nil)

// Run processes the examples and returns one summary per example that had a
// search key. Per-example failures are recorded in the summaries and history;
// the returned error is only set when ctx ends the run early.
func (p *pipeline) Run(ctx context.Context, examples []feature.Example) (*PipelineReport, error) {
	report := &PipelineReport{}

	var items []WorkItem[*models.RunSummary]
	for _, ex := range examples {
		if ex.SearchKey() == "" {
			p.logger.Warn("Example has no member type, skipping", zap.Int("example", ex.Index))
			report.Skipped = append(report.Skipped, ex.Index)
			continue
		}
		items = append(items, WorkItem[*models.RunSummary]{
			ID: "example-" + strconv.Itoa(ex.Index),
			Execute: func(ctx context.Context) (*models.RunSummary, error) {
				return p.runExample(ctx, ex)
			},
		})
	}

	results := Process(ctx, p.pool, items, nil)
	// History is appended here, in example order, whatever the concurrency.
	// Examples that finished before a cancellation are still recorded.
	historyCtx := context.WithoutCancel(ctx)
	for _, r := range results {
		if r.Err == nil && r.Result != nil {
			if err := p.deps.History.Append(historyCtx, r.Result); err != nil {
				p.logger.Error("Failed to append history",
					zap.Int("example", r.Result.ExampleIndex),
					zap.Error(err))
				r.Result.Error = joinError(r.Result.Error, "history: "+err.Error())
			}
		}
		if r.Result != nil {
			report.Summaries = append(report.Summaries, r.Result)
			report.Usage.Calls += r.Result.LLMCalls
			report.Usage.PromptTokens += r.Result.PromptTokens
			report.Usage.CompletionTokens += r.Result.CompletionTokens
			report.Usage.CostUSD += r.Result.CostUSD
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// runExample returns the summary together with ctx.Err() when the run was
// cancelled; Run records only summaries returned without an error.
func (p *pipeline) runExample(ctx context.Context, ex feature.Example) (*models.RunSummary, error) {
	started := p.now()
	usage := llm.NewUsage()
	ctx = llm.WithUsage(ctx, usage)

	searchKey := ex.SearchKey()
	settings := p.cfg.Discovery
	if rule, ok := p.cfg.Rules.For(searchKey); ok {
		settings = rule.Apply(settings)
	}

	summary := &models.RunSummary{
		ID:           uuid.New(),
		ExampleIndex: ex.Index,
		Example:      ex.Values,
		SearchKey:    searchKey,
		TargetCount:  settings.DesiredCount,
		StartedAt:    started.UTC(),
	}
	logger := p.logger.With(zap.Int("example", ex.Index), zap.String("search_key", searchKey))

	p.discoverAndLookup(ctx, ex, settings, summary, logger)

	snap := usage.Snapshot()
	summary.LLMCalls = snap.Calls
	summary.PromptTokens = snap.PromptTokens
	summary.CompletionTokens = snap.CompletionTokens
	summary.CostUSD = snap.CostUSD
	summary.CompletedAt = p.now().UTC()
	summary.DurationMs = summary.CompletedAt.Sub(summary.StartedAt).Milliseconds()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if p.cfg.OnExample != nil {
		p.cfg.OnExample(summary)
	}
	logger.Info("Example done",
		zap.Bool("satisfied", summary.Satisfied),
		zap.Int("chosen", summary.ChosenCount),
		zap.Int("warehouse_rows", summary.WarehouseRows),
		zap.Float64("cost_usd", summary.CostUSD))
	return summary, nil
}

func (p *pipeline) discoverAndLookup(ctx context.Context, ex feature.Example, settings config.DiscoveryConfig, summary *models.RunSummary, logger *zap.Logger) {
	if finding := sqlpkg.ScreenValue(ParamMemberType, summary.SearchKey); finding != nil {
		logger.Warn("Search key rejected", zap.String("fingerprint", finding.Fingerprint))
		summary.StopReason = StopScreened
		summary.Error = finding.Error()
		return
	}

	params := DiscoveryParams{
		SearchKey:   summary.SearchKey,
		TargetCount: settings.DesiredCount,
		PageSize:    settings.BatchSize,
		MaxPages:    settings.MaxBatches,
		IdentityKey: settings.IdentityKey,
	}
	if p.cfg.OnPage != nil {
		params.OnPage = func(st BatchState) { p.cfg.OnPage(ex, st) }
	}

	source := p.deps.SourceFor(settings.EmailPattern, settings.OrderBy)
	result, err := p.deps.Engine.Discover(ctx, source, params)
	if err != nil {
		logger.Error("Discovery failed", zap.String("error", logging.SanitizeError(err)))
		summary.Error = logging.SanitizeError(err)
		return
	}

	summary.Satisfied = result.Satisfied
	summary.PagesFetched = result.PagesFetched
	summary.FetchedCount = result.FetchedCount
	summary.MatchedCount = result.MatchedCount
	summary.ChosenCount = len(result.Candidates)
	summary.StopReason = result.StopReason
	summary.Rejections = result.Rejections

	candidates := result.Candidates
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	path, err := p.deps.Writer.Write(p.cfg.PrimaryOutputDir, fmt.Sprintf("candidates_example%d.json", ex.Index), candidates)
	if err != nil {
		summary.Error = err.Error()
		return
	}
	summary.CandidatesFile = path

	if p.deps.Warehouse == nil || p.cfg.WarehouseTemplate == "" {
		return
	}
	if err := p.lookupWarehouse(ctx, ex, settings, result.Candidates, summary); err != nil {
		logger.Warn("Warehouse lookup failed", zap.String("error", logging.SanitizeError(err)))
		summary.WarehouseError = logging.SanitizeError(err)
	}
}

// lookupWarehouse runs one batched warehouse statement over the chosen
// candidates' join keys and writes the rows.
func (p *pipeline) lookupWarehouse(ctx context.Context, ex feature.Example, settings config.DiscoveryConfig, chosen []models.Candidate, summary *models.RunSummary) error {
	keys := PageKeys(chosen, settings.JoinKey)
	if len(keys) == 0 {
		return fmt.Errorf("no %s values among %d candidates", settings.JoinKey, len(chosen))
	}

	req := BatchRequest{
		Template: sqlpkg.RenderTemplate(p.cfg.WarehouseTemplate, p.cfg.Vars),
		Dialect:  p.deps.Warehouse.Dialect(),
		Param:    p.cfg.WarehouseParam,
		Values:   keys,
		Catalog:  p.deps.WarehouseCatalog,
	}
	tempExec, canStage := p.deps.Warehouse.(datasource.TempKeysExecutor)
	if canStage {
		req.TempTable, req.TempColumns = tempExec.TempKeysTable()
	}

	stmt, err := p.deps.Synthesizer.Synthesize(ctx, req)
	if err != nil {
		return err
	}
	summary.WarehouseStrategy = string(stmt.Strategy)

	var res *datasource.QueryExecutionResult
	if stmt.UsesTempTable() && canStage {
		res, err = tempExec.QueryWithTempKeys(ctx, keys, stmt.SQL, 0)
	} else {
		res, err = p.deps.Warehouse.Query(ctx, stmt.SQL, 0)
	}
	if err != nil {
		return &apperrors.SourceError{Op: "warehouse query", Err: err}
	}

	rows := res.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	name := fmt.Sprintf("warehouse_result_example%d_%s.json", ex.Index, p.now().Format(resultTimestampFormat))
	path, err := p.deps.Writer.Write(p.cfg.WarehouseOutputDir, name, CandidatesFromResult(res))
	if err != nil {
		return err
	}
	summary.WarehouseOutputFile = &path
	summary.WarehouseRows = len(rows)
	return nil
}

func joinError(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "; " + next
}
