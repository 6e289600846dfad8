package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/prompts"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

// BatchStrategy records how a batched statement was produced.
type BatchStrategy string

const (
	BatchStrategyGenerated BatchStrategy = "generated"
	BatchStrategyTempTable BatchStrategy = "generated_temp_table"
	BatchStrategyFallback  BatchStrategy = "fallback_in_list"
)

// BatchRequest describes one single-row template to be widened to many keys.
type BatchRequest struct {
	Template string // rendered template, still holding the {Param} placeholder
	Dialect  datasource.Dialect
	Param    string
	Values   []any
	Catalog  *schema.Catalog // nil skips the schema check

	// TempTable, when set, is a session table the executor fills with Values.
	// Generated statements may join it instead of listing literals.
	// TempColumns holds its single key column.
	TempTable   string
	TempColumns map[string]string
}

func (r BatchRequest) tempColumn() string {
	for col := range r.TempColumns {
		return col
	}
	return ""
}

// BatchStatement is a validated statement ready for execution.
type BatchStatement struct {
	SQL      string
	Strategy BatchStrategy

	// GenerationError explains why a generated statement was not used;
	// empty when the generated statement was accepted or no client is set.
	GenerationError string
}

// UsesTempTable reports whether the statement expects the temp table to be filled.
func (b *BatchStatement) UsesTempTable() bool {
	return b.Strategy == BatchStrategyTempTable
}

// BatchSynthesizer turns a single-row template into one statement covering
// every key value.
type BatchSynthesizer interface {
	Synthesize(ctx context.Context, req BatchRequest) (*BatchStatement, error)
}

type batchSynthesizer struct {
	llmClient   llm.LLMClient
	validator   *sqlpkg.Validator
	temperature float64
	logger      *zap.Logger
}

// NewBatchSynthesizer creates a synthesizer. A nil client means every
// statement comes from the deterministic IN-list rewrite.
func NewBatchSynthesizer(llmClient llm.LLMClient, validator *sqlpkg.Validator, temperature float64, logger *zap.Logger) BatchSynthesizer {
	if validator == nil {
		validator = sqlpkg.NewValidator(nil)
	}
	return &batchSynthesizer{
		llmClient:   llmClient,
		validator:   validator,
		temperature: temperature,
		logger:      logger.Named("batch-synthesizer"),
	}
}

var _ BatchSynthesizer = (*batchSynthesizer)(nil)

var errEmptyGeneration = errors.New("empty response")

// Synthesize tries the generation call first and falls back to rewriting the
// template's <column> = '{param}' comparison into an IN list. Generation
// failures never surface as errors; only a fallback statement that fails
// validation does, as a *apperrors.RejectionError wrapped with
// ErrSynthesisFailure.
func (s *batchSynthesizer) Synthesize(ctx context.Context, req BatchRequest) (*BatchStatement, error) {
	if findings := sqlpkg.ScreenValues(req.Param, req.Values); len(findings) > 0 {
		// Literals are escaped either way; this only flags odd source data.
		for _, f := range findings {
			s.logger.Warn("Key value looks like SQL injection",
				zap.String("param", f.Field),
				zap.String("fingerprint", f.Fingerprint))
		}
	}

	var genErr string
	if s.llmClient != nil {
		stmt, err := s.generate(ctx, req)
		if err == nil {
			return stmt, nil
		}
		genErr = err.Error()
		s.logger.Info("Generated batch statement not usable, using IN-list rewrite",
			zap.String("param", req.Param),
			zap.String("reason", genErr))
	}

	sqlText := sqlpkg.FallbackInClause(req.Template, req.Param, req.Values)
	verdict := s.validator.Validate(sqlText, req.Catalog)
	if !verdict.Passed {
		s.logger.Warn("IN-list rewrite rejected",
			zap.String("param", req.Param),
			zap.String("reason", verdict.Reason))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSynthesisFailure, verdict.Err())
	}

	return &BatchStatement{
		SQL:             verdict.SQL,
		Strategy:        BatchStrategyFallback,
		GenerationError: genErr,
	}, nil
}

func (s *batchSynthesizer) generate(ctx context.Context, req BatchRequest) (*BatchStatement, error) {
	samples := make([]string, 0, min(len(req.Values), prompts.MaxBatchSampleValues))
	for _, v := range req.Values {
		if len(samples) == prompts.MaxBatchSampleValues {
			break
		}
		samples = append(samples, sqlpkg.FormatLiteral(v))
	}

	prompt := prompts.BuildBatchSQLPrompt(prompts.BatchSQLContext{
		Dialect:      req.Dialect.DisplayName(),
		Template:     req.Template,
		Param:        req.Param,
		SampleValues: samples,
		TempTable:    req.TempTable,
		TempColumn:   req.tempColumn(),
	})

	res, err := s.llmClient.GenerateResponse(llm.WithPurpose(ctx, "batch_sql"), prompt, prompts.BuildSQLSystemMessage(), s.temperature)
	if err != nil {
		return nil, err
	}
	sqlText := llm.ExtractSQL(res.Content)
	if sqlText == "" {
		return nil, errEmptyGeneration
	}
	if hasUnboundParam(sqlText, req.Param) {
		return nil, fmt.Errorf("statement still binds %s", req.Param)
	}

	strategy := BatchStrategyGenerated
	catalog := req.Catalog
	if req.TempTable != "" && strings.Contains(strings.ToUpper(sqlText), strings.ToUpper(req.TempTable)) {
		strategy = BatchStrategyTempTable
		if catalog != nil {
			catalog = catalog.WithTable(req.TempTable, req.TempColumns)
		}
	} else if len(req.Values) > prompts.MaxBatchSampleValues {
		// The model only saw a sample, so a literal list cannot be complete.
		return nil, fmt.Errorf("literal list cannot cover %d values from a %d value sample", len(req.Values), prompts.MaxBatchSampleValues)
	}

	verdict := s.validator.Validate(sqlText, catalog)
	if !verdict.Passed {
		return nil, verdict.Err()
	}
	return &BatchStatement{SQL: verdict.SQL, Strategy: strategy}, nil
}

// hasUnboundParam reports whether a statement still carries a bind token or
// placeholder for param ({param}, :param, :param_list, @param), which no
// executor here would fill.
func hasUnboundParam(sqlText, param string) bool {
	name := regexp.QuoteMeta(param)
	placeholder := regexp.MustCompile(`(?i)\{` + name + `(_list)?\}`)
	bind := regexp.MustCompile(`(?i)[:@]` + name + `(_list)?\b`)
	return placeholder.MatchString(sqlText) || bind.MatchString(sqlpkg.StripStringLiterals(sqlText))
}
