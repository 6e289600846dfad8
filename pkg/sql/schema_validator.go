package sql

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-discovery/pkg/schema"
)

// CrossValidate resolves the statement's identifiers against catalog and
// returns every issue found, in first-seen order.
//
// Table names match the rightmost segment of catalog keys, so TABLE and
// SCHEMA.TABLE catalogs behave the same. A column qualifier is resolved as a
// table name first and as an alias second. Qualifiers that are neither are
// accepted without a check, since correlation names from nested queries are
// not tracked.
func CrossValidate(stmt *ParsedStatement, catalog *schema.Catalog) []string {
	if stmt == nil || catalog == nil {
		return nil
	}

	var issues []string
	seen := make(map[string]bool)
	add := func(issue string) {
		if !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}

	for _, table := range stmt.Tables {
		if stmt.IsCTE(table) {
			continue
		}
		if _, _, ok := catalog.LookupByName(table); !ok {
			add(fmt.Sprintf("unknown table referenced: %s", table))
		}
	}

	for _, ref := range stmt.Columns {
		key, ts, ok := catalog.LookupByName(ref.Qualifier)
		if !ok {
			real, isAlias := stmt.Aliases[ref.Qualifier]
			if !isAlias {
				continue
			}
			key, ts, ok = catalog.LookupByName(real)
			if !ok {
				// Alias of a table already reported as unknown, or of a CTE.
				continue
			}
		}
		if !ts.HasColumn(ref.Column) {
			add(fmt.Sprintf("unknown column %s in table %s", ref.Column, key))
		}
	}

	return issues
}
