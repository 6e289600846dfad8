package services

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/models"
	"github.com/ekaya-inc/ekaya-discovery/pkg/prompts"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
	sqlpkg "github.com/ekaya-inc/ekaya-discovery/pkg/sql"
)

// Template placeholder names understood by the SQL source.
const (
	ParamMemberType   = "member_type"
	ParamEmailPattern = "email_pattern"
	ParamUserNo       = "user_no"
	ParamMemberID     = "member_id"
	VarOrderBy        = "ORDER_BY"
)

// SQLSourceConfig holds the templates and settings of a SQL-backed source.
type SQLSourceConfig struct {
	// PageTemplate lists rows for one search key. It may use ${VAR} tokens
	// from Vars, ${ORDER_BY}, {member_type} and {email_pattern}.
	PageTemplate string

	// MembershipTemplate checks one key, e.g.
	// SELECT USER_NO FROM OKTA_USERS WHERE USER_NO = '{user_no}'. The first
	// result column holds the matched keys.
	MembershipTemplate string
	MembershipParam    string // default "user_no"

	Vars          map[string]string
	FilterPattern string
	OrderBy       string

	// GeneratedPaging asks the generation endpoint to page PageTemplate
	// before falling back to the dialect's own paging clause.
	GeneratedPaging bool
	Temperature     float64
}

// SQLSourceDeps are the collaborators of a SQL-backed source.
type SQLSourceDeps struct {
	Primary           datasource.Datasource
	PrimaryCatalog    *schema.Catalog
	Membership        datasource.Datasource // defaults to Primary
	MembershipCatalog *schema.Catalog       // defaults to PrimaryCatalog when Membership is Primary
	Synthesizer       BatchSynthesizer
	LLM               llm.LLMClient // optional
	Validator         *sqlpkg.Validator
}

// SQLDiscoverySource implements DiscoverySource over two datasources. Every
// statement it runs has passed the validator first.
type SQLDiscoverySource struct {
	deps   SQLSourceDeps
	cfg    SQLSourceConfig
	logger *zap.Logger
}

// NewSQLDiscoverySource creates a SQL-backed discovery source.
func NewSQLDiscoverySource(deps SQLSourceDeps, cfg SQLSourceConfig, logger *zap.Logger) (*SQLDiscoverySource, error) {
	if deps.Primary == nil {
		return nil, fmt.Errorf("primary datasource is required")
	}
	if deps.Synthesizer == nil {
		return nil, fmt.Errorf("batch synthesizer is required")
	}
	if strings.TrimSpace(cfg.PageTemplate) == "" || strings.TrimSpace(cfg.MembershipTemplate) == "" {
		return nil, fmt.Errorf("page and membership templates are required")
	}
	if deps.Membership == nil {
		deps.Membership = deps.Primary
		if deps.MembershipCatalog == nil {
			deps.MembershipCatalog = deps.PrimaryCatalog
		}
	}
	if deps.Validator == nil {
		deps.Validator = sqlpkg.NewValidator(nil)
	}
	if cfg.MembershipParam == "" {
		cfg.MembershipParam = ParamUserNo
	}
	return &SQLDiscoverySource{deps: deps, cfg: cfg, logger: logger.Named("sql-source")}, nil
}

var _ DiscoverySource = (*SQLDiscoverySource)(nil)

// WithFilter returns a copy of the source using a different filter pattern
// and ordering; empty arguments keep the current values.
func (s *SQLDiscoverySource) WithFilter(filterPattern, orderBy string) DiscoverySource {
	cp := *s
	if filterPattern != "" {
		cp.cfg.FilterPattern = filterPattern
	}
	if orderBy != "" {
		cp.cfg.OrderBy = orderBy
	}
	return &cp
}

// RenderPageTemplate fills the page template for one search key. Values
// spliced into quoted placeholders have their single quotes doubled.
func (s *SQLDiscoverySource) RenderPageTemplate(searchKey string) string {
	vars := maps.Clone(s.cfg.Vars)
	if vars == nil {
		vars = make(map[string]string)
	}
	vars[VarOrderBy] = s.cfg.OrderBy
	vars[ParamMemberType] = escapeQuotes(searchKey)
	vars[ParamEmailPattern] = escapeQuotes(s.cfg.FilterPattern)
	return sqlpkg.RenderTemplate(s.cfg.PageTemplate, vars)
}

// PageStatement returns the validated statement for one page.
func (s *SQLDiscoverySource) PageStatement(ctx context.Context, searchKey string, offset, limit int) (string, error) {
	base := s.RenderPageTemplate(searchKey)
	dialect := s.deps.Primary.Dialect()

	if s.cfg.GeneratedPaging && s.deps.LLM != nil {
		stmt, err := s.generatedPage(ctx, dialect, base, offset, limit)
		if err == nil {
			return stmt, nil
		}
		s.logger.Info("Generated page statement not usable, using dialect paging",
			zap.Int("offset", offset),
			zap.String("reason", err.Error()))
	}

	verdict := s.deps.Validator.Validate(dialect.Paginate(base, offset, limit), s.deps.PrimaryCatalog)
	if !verdict.Passed {
		return "", verdict.Err()
	}
	return verdict.SQL, nil
}

func (s *SQLDiscoverySource) generatedPage(ctx context.Context, dialect datasource.Dialect, base string, offset, limit int) (string, error) {
	prompt := prompts.BuildPaginationPrompt(dialect.DisplayName(), dialect.PaginationHint(), base, offset, limit)
	res, err := s.deps.LLM.GenerateResponse(llm.WithPurpose(ctx, "page_sql"), prompt, prompts.BuildSQLSystemMessage(), s.cfg.Temperature)
	if err != nil {
		return "", err
	}
	stmt := llm.ExtractSQL(res.Content)
	if stmt == "" {
		return "", errEmptyGeneration
	}
	if !strings.Contains(stmt, strconv.Itoa(limit)) {
		return "", fmt.Errorf("statement does not page by %d rows", limit)
	}
	verdict := s.deps.Validator.Validate(stmt, s.deps.PrimaryCatalog)
	if !verdict.Passed {
		return "", verdict.Err()
	}
	return verdict.SQL, nil
}

// FetchPage implements DiscoverySource.
func (s *SQLDiscoverySource) FetchPage(ctx context.Context, searchKey string, offset, limit int) ([]models.Candidate, error) {
	stmt, err := s.PageStatement(ctx, searchKey, offset, limit)
	if err != nil {
		return nil, err
	}
	res, err := s.deps.Primary.Query(ctx, stmt, limit)
	if err != nil {
		return nil, err
	}
	return CandidatesFromResult(res), nil
}

// CheckMembership implements DiscoverySource.
func (s *SQLDiscoverySource) CheckMembership(ctx context.Context, keys []any) (models.KeySet, error) {
	found := models.NewKeySet()
	if len(keys) == 0 {
		return found, nil
	}

	req := BatchRequest{
		Template: sqlpkg.RenderTemplate(s.cfg.MembershipTemplate, s.cfg.Vars),
		Dialect:  s.deps.Membership.Dialect(),
		Param:    s.cfg.MembershipParam,
		Values:   keys,
		Catalog:  s.deps.MembershipCatalog,
	}
	tempExec, canStage := s.deps.Membership.(datasource.TempKeysExecutor)
	if canStage {
		req.TempTable, req.TempColumns = tempExec.TempKeysTable()
	}

	stmt, err := s.deps.Synthesizer.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	var res *datasource.QueryExecutionResult
	if stmt.UsesTempTable() && canStage {
		res, err = tempExec.QueryWithTempKeys(ctx, keys, stmt.SQL, 0)
	} else {
		res, err = s.deps.Membership.Query(ctx, stmt.SQL, 0)
	}
	if err != nil {
		return nil, err
	}

	if len(res.Columns) == 0 {
		return found, nil
	}
	first := res.Columns[0].Name
	for _, row := range res.Rows {
		found.Add(row[first])
	}
	s.logger.Debug("Membership checked",
		zap.Int("keys", len(keys)),
		zap.Int("found", len(found)),
		zap.String("strategy", string(stmt.Strategy)))
	return found, nil
}

// CandidatesFromResult converts result rows into candidates keeping column order.
func CandidatesFromResult(res *datasource.QueryExecutionResult) []models.Candidate {
	if res == nil {
		return nil
	}
	cols := res.ColumnNames()
	out := make([]models.Candidate, 0, len(res.Rows))
	for _, row := range res.Rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			values[i] = row[c]
		}
		out = append(out, models.NewCandidate(cols, values))
	}
	return out
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
