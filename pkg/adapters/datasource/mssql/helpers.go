package mssql

import (
	"fmt"
	"strconv"
	"strings"
)

// TempKeysTable is the session temp table QueryWithTempKeys fills.
const TempKeysTable = "#members"

// TempTableColumns describes TempKeysTable for schema validation.
var TempTableColumns = map[string]string{"member_id": "BIGINT"}

// maxInsertBatch bounds the VALUES rows per INSERT; SQL Server allows 1000.
const maxInsertBatch = 1000

// defaultTableCap bounds unfiltered schema extraction; warehouses can hold
// thousands of tables and the catalog is also used in prompts.
const defaultTableCap = 20

// mapSQLServerType normalizes SQL Server type names for result metadata.
func mapSQLServerType(sqlServerType string) string {
	sqlServerType = strings.ToUpper(sqlServerType)

	switch sqlServerType {
	case "INT":
		return "INTEGER"
	case "DECIMAL", "NUMERIC":
		return "NUMERIC"
	case "MONEY", "SMALLMONEY":
		return "MONEY"
	case "FLOAT":
		return "DOUBLE PRECISION"
	case "CHAR", "NCHAR":
		return "CHAR"
	case "VARCHAR", "NVARCHAR":
		return "VARCHAR"
	case "TEXT", "NTEXT":
		return "TEXT"
	case "BINARY", "VARBINARY":
		return "BYTEA"
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return "TIMESTAMP"
	case "DATETIMEOFFSET":
		return "TIMESTAMP WITH TIME ZONE"
	case "BIT":
		return "BOOLEAN"
	case "UNIQUEIDENTIFIER":
		return "UNIQUEIDENTIFIER"
	default:
		return sqlServerType
	}
}

// insertKeysStatements renders batched INSERTs of integer keys into the temp
// table. Keys are formatted as integers so nothing from the source row is
// spliced into SQL text.
func insertKeysStatements(keys []int64) []string {
	var stmts []string
	for start := 0; start < len(keys); start += maxInsertBatch {
		end := min(start+maxInsertBatch, len(keys))
		var b strings.Builder
		b.WriteString("INSERT INTO " + TempKeysTable + " (member_id) VALUES ")
		for i, k := range keys[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "(%d)", k)
		}
		stmts = append(stmts, b.String())
	}
	return stmts
}

// parseKeys converts join-key values to BIGINT keys.
func parseKeys(keys []any) ([]int64, error) {
	out := make([]int64, 0, len(keys))
	for _, k := range keys {
		switch v := k.(type) {
		case int:
			out = append(out, int64(v))
		case int32:
			out = append(out, int64(v))
		case int64:
			out = append(out, v)
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("key %v is not an integer", v)
			}
			out = append(out, int64(v))
		case []byte:
			n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key %q is not an integer", string(v))
			}
			out = append(out, n)
		default:
			n, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(v)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("key %q is not an integer", fmt.Sprint(v))
			}
			out = append(out, n)
		}
	}
	return out, nil
}
