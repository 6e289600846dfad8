package datasource

import (
	"fmt"
	"strings"
)

// Dialect identifies the SQL flavour a datasource speaks.
type Dialect string

const (
	DialectOracle    Dialect = "oracle"
	DialectSQLServer Dialect = "sqlserver"
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
)

// DisplayName is the name used in generation prompts.
func (d Dialect) DisplayName() string {
	switch d {
	case DialectOracle:
		return "Oracle"
	case DialectSQLServer:
		return "SQL Server"
	case DialectPostgres:
		return "PostgreSQL"
	case DialectMySQL:
		return "MySQL"
	case DialectSQLite:
		return "SQLite"
	}
	return string(d)
}

// UsesOffsetFetch reports whether the dialect pages with
// OFFSET ... ROWS FETCH NEXT ... ROWS ONLY rather than LIMIT/OFFSET.
func (d Dialect) UsesOffsetFetch() bool {
	return d == DialectOracle || d == DialectSQLServer
}

// PaginationHint describes the paging clause for prompts.
func (d Dialect) PaginationHint() string {
	if d.UsesOffsetFetch() {
		return "OFFSET <offset> ROWS FETCH NEXT <limit> ROWS ONLY"
	}
	return "LIMIT <limit> OFFSET <offset>"
}

// Paginate appends the dialect's paging clause to a single SELECT. The
// statement is expected to carry its own ORDER BY; SQL Server rejects OFFSET
// without one, so a constant ordering is added there when it is missing.
func (d Dialect) Paginate(sqlQuery string, offset, limit int) string {
	base := strings.TrimRight(strings.TrimSpace(sqlQuery), "; \t\n\r")
	if d.UsesOffsetFetch() {
		if d == DialectSQLServer && !strings.Contains(strings.ToUpper(base), "ORDER BY") {
			base += " ORDER BY (SELECT NULL)"
		}
		return fmt.Sprintf("%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", base, offset, limit)
	}
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", base, limit, offset)
}
