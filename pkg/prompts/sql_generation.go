// Package prompts builds the text sent to the generation endpoint.
package prompts

import (
	"fmt"
	"strings"
)

// MaxBatchSampleValues bounds how many key values are shown to the model
// when asking for a batched statement.
const MaxBatchSampleValues = 50

// BatchSQLContext describes one single-row template to be rewritten for many keys.
type BatchSQLContext struct {
	Dialect      string   // display name, e.g. "Oracle", "SQL Server"
	Template     string   // rendered single-row SQL
	Param        string   // placeholder name, e.g. "user_no"
	SampleValues []string // already stringified
	TempTable    string   // session temp table holding all keys, empty if unsupported
	TempColumn   string   // key column of TempTable
}

// BuildBatchSQLPrompt asks for one statement that checks Param against every
// supplied value. At most MaxBatchSampleValues samples are included.
func BuildBatchSQLPrompt(c BatchSQLContext) string {
	samples := c.SampleValues
	if len(samples) > MaxBatchSampleValues {
		samples = samples[:MaxBatchSampleValues]
	}

	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("The database dialect is: %s.\n\n", c.Dialect))
	prompt.WriteString(fmt.Sprintf("I have a SQL template that takes a single parameter named '%s'.\n", c.Param))
	prompt.WriteString("Here is the single-row SQL template:\n\n")
	prompt.WriteString(c.Template)
	prompt.WriteString("\n\n")

	prompt.WriteString(fmt.Sprintf("Produce a batched SQL statement that checks multiple values for %s", c.Param))
	if c.TempTable != "" {
		prompt.WriteString(fmt.Sprintf(
			", either with an IN (...) list of the literal values or by joining the session temp table %s, which already holds every value in its %s column.\n",
			c.TempTable, c.TempColumn))
	} else {
		prompt.WriteString(fmt.Sprintf(", using an IN (...) list of literal values appropriate for %s.\n", c.Dialect))
	}
	prompt.WriteString("Do not create, insert into or drop any table.\n\n")

	prompt.WriteString(fmt.Sprintf("Values (%d shown): %s\n\n", len(samples), strings.Join(samples, ", ")))
	prompt.WriteString("Return exactly one SQL statement only (no commentary).\n")
	return prompt.String()
}

// BuildPaginationPrompt asks the model to page a rendered statement.
func BuildPaginationPrompt(dialect, paginationHint, sqlQuery string, offset, limit int) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf(
		"Convert the following %s SQL into a paginated SQL that returns rows between offset %d and limit %d. Keep its ORDER BY, adding one if required. Return only one SQL statement.\n\n",
		dialect, offset, limit))
	prompt.WriteString("SQL:\n")
	prompt.WriteString(sqlQuery)
	prompt.WriteString("\n\n")
	hint := strings.NewReplacer("<offset>", fmt.Sprint(offset), "<limit>", fmt.Sprint(limit)).Replace(paginationHint)
	prompt.WriteString(fmt.Sprintf("Add paging: %s.\n", hint))
	return prompt.String()
}

// QueryGenerationContext is the input for a natural-language request.
type QueryGenerationContext struct {
	Dialect        string
	SchemaSnippet  string   // "TABLE: col, col" lines
	ExampleQueries []string // reference statements known to work
	SampleRows     string   // JSON rows from another source, optional
	Request        string
}

// BuildQueryGenerationPrompt turns a request into a single-statement prompt.
func BuildQueryGenerationPrompt(c QueryGenerationContext) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Write one read-only %s SELECT statement for the request below.\n\n", c.Dialect))

	prompt.WriteString("## Schema\n\n")
	prompt.WriteString(c.SchemaSnippet)
	prompt.WriteString("\n\n")

	if len(c.ExampleQueries) > 0 {
		prompt.WriteString("## Example queries\n\n")
		for _, q := range c.ExampleQueries {
			prompt.WriteString(strings.TrimSpace(q))
			prompt.WriteString("\n\n")
		}
	}

	if c.SampleRows != "" {
		prompt.WriteString("## Sample rows from the source system\n\n")
		prompt.WriteString(c.SampleRows)
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("## Request\n\n")
	prompt.WriteString(c.Request)
	prompt.WriteString("\n\n")
	prompt.WriteString("Only use tables and columns listed in the schema. Return only the SQL, no explanation.\n")
	return prompt.String()
}

// BuildSQLSystemMessage returns the system message shared by every SQL prompt.
func BuildSQLSystemMessage() string {
	return `You are a careful SQL assistant. You only ever return a single read-only SELECT or WITH statement, with no commentary.`
}
