package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/logging"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
	"github.com/ekaya-inc/ekaya-discovery/pkg/prompts"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

// Limits on what a query generation prompt carries.
const (
	MaxPromptSampleRows = 20
	MaxPromptTables     = 200
)

// QueryTarget is the database a generated statement will run against.
type QueryTarget struct {
	Name           string // "primary" or "warehouse", for logs
	Dialect        datasource.Dialect
	Catalog        *schema.Catalog
	ExampleQueries []string
}

// GeneratedQuery is a statement drafted from a natural-language request.
type GeneratedQuery struct {
	SQL     string
	Verdict sqlpkg.Verdict
}

// QueryGenerator drafts read-only statements from natural-language requests.
type QueryGenerator interface {
	// Generate drafts a statement for request. sample rows, when given, are
	// included so the statement can be restricted to those members. A
	// statement that fails validation is returned with its verdict and a
	// *apperrors.RejectionError.
	Generate(ctx context.Context, target QueryTarget, request string, sample []models.Candidate) (*GeneratedQuery, error)
}

type queryGenerator struct {
	llmClient   llm.LLMClient
	validator   *sqlpkg.Validator
	temperature float64
	logger      *zap.Logger
}

// NewQueryGenerator creates a query generator.
func NewQueryGenerator(llmClient llm.LLMClient, validator *sqlpkg.Validator, temperature float64, logger *zap.Logger) QueryGenerator {
	if validator == nil {
		validator = sqlpkg.NewValidator(nil)
	}
	return &queryGenerator{
		llmClient:   llmClient,
		validator:   validator,
		temperature: temperature,
		logger:      logger.Named("query-generator"),
	}
}

var _ QueryGenerator = (*queryGenerator)(nil)

func (g *queryGenerator) Generate(ctx context.Context, target QueryTarget, request string, sample []models.Candidate) (*GeneratedQuery, error) {
	if g.llmClient == nil {
		return nil, errors.New("no generation endpoint configured")
	}
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, errors.New("request is empty")
	}

	sampleJSON, err := formatSample(sample)
	if err != nil {
		return nil, err
	}

	prompt := prompts.BuildQueryGenerationPrompt(prompts.QueryGenerationContext{
		Dialect:        target.Dialect.DisplayName(),
		SchemaSnippet:  target.Catalog.Snippet(MaxPromptTables),
		ExampleQueries: target.ExampleQueries,
		SampleRows:     sampleJSON,
		Request:        request,
	})

	res, err := g.llmClient.GenerateResponse(llm.WithPurpose(ctx, "query_generation"), prompt, prompts.BuildSQLSystemMessage(), g.temperature)
	if err != nil {
		return nil, fmt.Errorf("generate %s query: %w", target.Name, err)
	}
	stmt := llm.ExtractSQL(res.Content)
	if stmt == "" {
		return nil, fmt.Errorf("generate %s query: %w", target.Name, errEmptyGeneration)
	}

	verdict := g.validator.Validate(stmt, target.Catalog)
	out := &GeneratedQuery{SQL: verdict.SQL, Verdict: verdict}
	if !verdict.Passed {
		g.logger.Warn("Generated query rejected",
			zap.String("target", target.Name),
			zap.String("reason", verdict.Reason),
			zap.String("sql", logging.TruncateQuery(verdict.SQL, 200)))
		return out, verdict.Err()
	}

	g.logger.Info("Generated query accepted",
		zap.String("target", target.Name),
		zap.String("sql", logging.TruncateQuery(verdict.SQL, 200)))
	return out, nil
}

func formatSample(sample []models.Candidate) (string, error) {
	if len(sample) == 0 {
		return "", nil
	}
	if len(sample) > MaxPromptSampleRows {
		sample = sample[:MaxPromptSampleRows]
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format sample rows: %w", err)
	}
	return string(data), nil
}
