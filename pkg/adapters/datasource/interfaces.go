// Package datasource defines the database adapters used for paged discovery,
// membership checks, warehouse lookups and schema extraction.
package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// ConnectionTester tests database connectivity.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials.
	// Returns nil if connection is healthy, error otherwise.
	TestConnection(ctx context.Context) error

	// Close releases any resources held by the adapter.
	Close() error
}

// SchemaExtractor builds a catalog from the database's column metadata.
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, filter SchemaFilter) (*schema.Catalog, error)
}

// QueryExecutor runs read-only statements. Statements reaching an executor
// have already passed validation; executors do not re-check them.
type QueryExecutor interface {
	// Query runs sqlQuery on a fresh connection and returns at most limit
	// rows. limit <= 0 uses MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)
}

// Datasource is everything the discovery pipeline needs from one database.
// Each round trip acquires its own connection and releases it before
// returning, so a failed page never poisons the next one.
type Datasource interface {
	ConnectionTester
	SchemaExtractor
	QueryExecutor

	// Dialect reports the SQL dialect used for prompts and pagination.
	Dialect() Dialect
}

// TempKeysExecutor is implemented by adapters that can stage a key list in a
// session temp table and run a statement joining against it.
type TempKeysExecutor interface {
	// TempKeysTable returns the temp table name and its columns, for
	// validating statements that reference it.
	TempKeysTable() (string, map[string]string)

	QueryWithTempKeys(ctx context.Context, keys []any, sqlQuery string, limit int) (*QueryExecutionResult, error)
}

// MaxQueryLimit is the row cap applied when a caller passes no limit.
const MaxQueryLimit = 10000

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "NUMBER", "VARCHAR2", "INT4")
}

// QueryExecutionResult holds the results from executing a query.
type QueryExecutionResult struct {
	Columns   []ColumnInfo     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"` // more rows existed past the limit
}

// ColumnNames returns the result's column names in select order.
func (r *QueryExecutionResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaFilter narrows schema extraction. Zero value extracts everything the
// adapter allows.
type SchemaFilter struct {
	Schemas     []string // owners/schemas to read; adapter default when empty
	Tables      []string // exact table names, case-insensitive
	TablePrefix string   // table name prefix, case-insensitive
	MaxTables   int      // 0 means no limit beyond the adapter's own cap
}

// IsEmpty reports whether no table-level narrowing was requested.
func (f SchemaFilter) IsEmpty() bool {
	return len(f.Tables) == 0 && f.TablePrefix == "" && f.MaxTables <= 0
}
