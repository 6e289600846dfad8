package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildBatchSQLPrompt_CapsSamples(t *testing.T) {
	var values []string
	for i := 0; i < 80; i++ {
		values = append(values, fmt.Sprint(i))
	}

	prompt := BuildBatchSQLPrompt(BatchSQLContext{
		Dialect:      "Oracle",
		Template:     "SELECT USER_NO FROM OKTA_USERS WHERE USER_NO = '{user_no}'",
		Param:        "user_no",
		SampleValues: values,
	})

	assert.Contains(t, prompt, "The database dialect is: Oracle.")
	assert.Contains(t, prompt, "WHERE USER_NO = '{user_no}'")
	assert.Contains(t, prompt, "Values (50 shown)")
	assert.Contains(t, prompt, ", 49\n")
	assert.NotContains(t, prompt, ", 50,")
	assert.NotContains(t, prompt, "temp table")
}

func TestBuildBatchSQLPrompt_TempTable(t *testing.T) {
	prompt := BuildBatchSQLPrompt(BatchSQLContext{
		Dialect:    "SQL Server",
		Template:   "SELECT * FROM dbo.ORDERS WHERE MEMBER_ID = '{member_id}'",
		Param:      "member_id",
		TempTable:  "#members",
		TempColumn: "member_id",
	})
	assert.Contains(t, prompt, "session temp table #members, which already holds every value in its member_id column")
}

func TestBuildPaginationPrompt(t *testing.T) {
	prompt := BuildPaginationPrompt("Oracle", "OFFSET <offset> ROWS FETCH NEXT <limit> ROWS ONLY", "SELECT 1 FROM DUAL", 400, 200)
	assert.Contains(t, prompt, "Add paging: OFFSET 400 ROWS FETCH NEXT 200 ROWS ONLY.")
	assert.Contains(t, prompt, "SELECT 1 FROM DUAL")
}

func TestBuildQueryGenerationPrompt(t *testing.T) {
	prompt := BuildQueryGenerationPrompt(QueryGenerationContext{
		Dialect:        "SQL Server",
		SchemaSnippet:  "DBO.ORDERS: MEMBER_ID, TOTAL",
		ExampleQueries: []string{"  SELECT TOP 1 * FROM dbo.ORDERS  "},
		Request:        "total per member",
	})

	assert.True(t, strings.HasPrefix(prompt, "Write one read-only SQL Server SELECT"))
	assert.Contains(t, prompt, "## Example queries\n\nSELECT TOP 1 * FROM dbo.ORDERS\n")
	assert.NotContains(t, prompt, "## Sample rows")
	assert.Contains(t, prompt, "total per member")
}
