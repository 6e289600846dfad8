package datasource

import (
	"strings"

	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// ColumnMetadata is one row of a database's column dictionary.
type ColumnMetadata struct {
	SchemaName      string
	TableName       string
	ColumnName      string
	DataType        string
	OrdinalPosition int
}

// BuildCatalog turns column metadata into a catalog. Tables keep the order in
// which they first appear; the filter is applied per table. When qualified is
// true keys are SCHEMA.TABLE, otherwise just TABLE.
func BuildCatalog(columns []ColumnMetadata, filter SchemaFilter, qualified bool) *schema.Catalog {
	wanted := make(map[string]bool, len(filter.Tables))
	for _, t := range filter.Tables {
		wanted[schema.NormalizeKey(t)] = true
	}
	prefix := schema.NormalizeKey(filter.TablePrefix)

	cat := schema.NewCatalog()
	accepted := make(map[string]bool)
	rejected := make(map[string]bool)

	for _, col := range columns {
		key := col.TableName
		if qualified && col.SchemaName != "" {
			key = col.SchemaName + "." + col.TableName
		}
		key = schema.NormalizeKey(key)
		if rejected[key] {
			continue
		}
		if !accepted[key] {
			name := schema.NormalizeKey(col.TableName)
			if (len(wanted) > 0 && !wanted[name]) ||
				(prefix != "" && !strings.HasPrefix(name, prefix)) ||
				(filter.MaxTables > 0 && len(accepted) >= filter.MaxTables) {
				rejected[key] = true
				continue
			}
			accepted[key] = true
		}
		cat.AddColumn(key, col.ColumnName, col.DataType)
	}
	return cat
}
