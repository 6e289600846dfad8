package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-discovery/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-discovery/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-discovery/pkg/llm"
	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

func warehouseCatalog() *schema.Catalog {
	cat := schema.NewCatalog()
	cat.AddTable("DBO.ORDERS", map[string]string{"MEMBER_ID": "bigint", "TOTAL": "money"})
	return cat
}

func TestSynthesize_FallbackWithoutClient(t *testing.T) {
	s := NewBatchSynthesizer(nil, nil, 0, zap.NewNop())

	stmt, err := s.Synthesize(context.Background(), BatchRequest{
		Template: "SELECT * FROM T WHERE ID = '{id}'",
		Dialect:  datasource.DialectOracle,
		Param:    "id",
		Values:   []any{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM T WHERE ID IN (1, 2, 3)", stmt.SQL)
	assert.Equal(t, BatchStrategyFallback, stmt.Strategy)
	assert.Empty(t, stmt.GenerationError)
}

func TestSynthesize_GeneratedStatementAccepted(t *testing.T) {
	client := llm.NewStaticMockLLMClient("```sql\nSELECT MEMBER_ID, TOTAL FROM dbo.ORDERS WHERE MEMBER_ID IN (10, 20);\n```")
	s := NewBatchSynthesizer(client, nil, 0, zap.NewNop())

	stmt, err := s.Synthesize(context.Background(), BatchRequest{
		Template: "SELECT MEMBER_ID, TOTAL FROM dbo.ORDERS WHERE MEMBER_ID = '{member_id}'",
		Dialect:  datasource.DialectSQLServer,
		Param:    "member_id",
		Values:   []any{int64(10), int64(20)},
		Catalog:  warehouseCatalog(),
	})
	require.NoError(t, err)
	assert.Equal(t, BatchStrategyGenerated, stmt.Strategy)
	assert.Equal(t, "SELECT MEMBER_ID, TOTAL FROM dbo.ORDERS WHERE MEMBER_ID IN (10, 20)", stmt.SQL)

	require.Equal(t, 1, client.Calls())
	prompt := client.Prompts()[0]
	assert.Contains(t, prompt, "SQL Server")
	assert.Contains(t, prompt, "10, 20")
}

func TestSynthesize_GeneratedStatementRejected(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		err        error
		values     []any
		wantReason string
	}{
		{name: "forbidden keyword", response: "DELETE FROM dbo.ORDERS", values: []any{1}, wantReason: "forbidden keyword found: DELETE"},
		{name: "unknown column", response: "SELECT o.NOPE FROM dbo.ORDERS o WHERE o.MEMBER_ID IN (1)", values: []any{1}, wantReason: "unknown column NOPE"},
		{name: "empty", response: "```sql\n```", values: []any{1}, wantReason: "empty response"},
		{name: "unbound list", response: "SELECT * FROM dbo.ORDERS WHERE MEMBER_ID IN (:member_id_list)", values: []any{1}, wantReason: "still binds member_id"},
		{name: "call failed", err: errors.New("503 service unavailable"), values: []any{1}, wantReason: "503"},
		{name: "sample too small", response: "SELECT * FROM dbo.ORDERS WHERE MEMBER_ID IN (1, 2)", values: manyValues(60), wantReason: "cannot cover 60 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewMockLLMClient()
			client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResponseResult, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &llm.GenerateResponseResult{Content: tt.response}, nil
			}
			s := NewBatchSynthesizer(client, nil, 0, zap.NewNop())

			stmt, err := s.Synthesize(context.Background(), BatchRequest{
				Template: "SELECT * FROM dbo.ORDERS WHERE MEMBER_ID = '{member_id}'",
				Dialect:  datasource.DialectSQLServer,
				Param:    "member_id",
				Values:   tt.values,
				Catalog:  warehouseCatalog(),
			})
			require.NoError(t, err)
			assert.Equal(t, BatchStrategyFallback, stmt.Strategy)
			assert.True(t, strings.HasPrefix(stmt.SQL, "SELECT * FROM dbo.ORDERS WHERE MEMBER_ID IN (1"), stmt.SQL)
			assert.Contains(t, stmt.GenerationError, tt.wantReason)
		})
	}
}

func manyValues(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestSynthesize_TempTableStatement(t *testing.T) {
	client := llm.NewStaticMockLLMClient("SELECT o.MEMBER_ID, o.TOTAL FROM dbo.ORDERS o JOIN #members m ON o.MEMBER_ID = m.member_id")
	s := NewBatchSynthesizer(client, nil, 0, zap.NewNop())

	stmt, err := s.Synthesize(context.Background(), BatchRequest{
		Template:    "SELECT * FROM dbo.ORDERS WHERE MEMBER_ID = '{member_id}'",
		Dialect:     datasource.DialectSQLServer,
		Param:       "member_id",
		Values:      manyValues(120),
		Catalog:     warehouseCatalog(),
		TempTable:   "#members",
		TempColumns: map[string]string{"member_id": "BIGINT"},
	})
	require.NoError(t, err)
	assert.True(t, stmt.UsesTempTable())
	assert.Contains(t, client.Prompts()[0], "#members")
	assert.Contains(t, client.Prompts()[0], "Values (50 shown)")
}

func TestSynthesize_FallbackRejected(t *testing.T) {
	s := NewBatchSynthesizer(nil, nil, 0, zap.NewNop())

	_, err := s.Synthesize(context.Background(), BatchRequest{
		Template: "SELECT * FROM dbo.MISSING WHERE MEMBER_ID = '{member_id}'",
		Dialect:  datasource.DialectSQLServer,
		Param:    "member_id",
		Values:   []any{1},
		Catalog:  warehouseCatalog(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSynthesisFailure)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
	assert.True(t, apperrors.IsRejection(err))
}

func TestSynthesize_EscapesAndWarnsOnSuspiciousValues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewBatchSynthesizer(nil, nil, 0, zap.New(core))

	stmt, err := s.Synthesize(context.Background(), BatchRequest{
		Template: "SELECT * FROM T WHERE NAME = '{name}'",
		Dialect:  datasource.DialectPostgres,
		Param:    "name",
		Values:   []any{"O'Brien", "x' OR '1'='1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM T WHERE NAME IN ('O''Brien', 'x'' OR ''1''=''1')", stmt.SQL)
	assert.GreaterOrEqual(t, logs.FilterMessage("Key value looks like SQL injection").Len(), 1)
}

func TestHasUnboundParam(t *testing.T) {
	assert.True(t, hasUnboundParam("SELECT 1 FROM T WHERE A = '{user_no}'", "user_no"))
	assert.True(t, hasUnboundParam("SELECT 1 FROM T WHERE A IN (:USER_NO_LIST)", "user_no"))
	assert.True(t, hasUnboundParam("SELECT 1 FROM T WHERE A = @user_no", "user_no"))
	assert.False(t, hasUnboundParam("SELECT 1 FROM T WHERE A IN (1, 2)", "user_no"))
	assert.False(t, hasUnboundParam("SELECT ':user_no' FROM T", "user_no"))
}
