// Package schema holds the in-memory table/column catalog that generated SQL
// is validated against.
package schema

import (
	"sort"
	"strings"
)

// TableSchema is the column set of one table. Keys are normalized column
// names; values are the declared type tag, kept for prompts only.
type TableSchema struct {
	Columns map[string]string `json:"columns" yaml:"columns"`
}

// HasColumn reports whether the normalized column exists in the table.
func (t *TableSchema) HasColumn(column string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Columns[NormalizeKey(column)]
	return ok
}

// ColumnNames returns the table's column keys in sorted order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog maps normalized table keys (TABLE or SCHEMA.TABLE) to their
// columns. A catalog is populated once with AddTable and treated as
// read-only afterwards; WithTable returns an augmented copy.
type Catalog struct {
	tables map[string]*TableSchema
	keys   []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*TableSchema)}
}

// NormalizeKey upper-cases an identifier and strips quoting characters.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.Map(func(r rune) rune {
		switch r {
		case '"', '`', '[', ']':
			return -1
		}
		return r
	}, key)
	return strings.ToUpper(key)
}

// LastSegment returns the rightmost dot-separated part of a name.
func LastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// AddTable adds or merges a table. Column names are normalized;
// merging into an existing key keeps the first type seen for a column.
func (c *Catalog) AddTable(key string, columns map[string]string) {
	key = NormalizeKey(key)
	if key == "" {
		return
	}
	ts, ok := c.tables[key]
	if !ok {
		ts = &TableSchema{Columns: make(map[string]string, len(columns))}
		c.tables[key] = ts
		c.keys = append(c.keys, key)
	}
	for col, typ := range columns {
		col = NormalizeKey(col)
		if col == "" {
			continue
		}
		if _, exists := ts.Columns[col]; !exists {
			ts.Columns[col] = strings.TrimSpace(typ)
		}
	}
}

// AddColumn adds a single column to a table, creating the table if needed.
func (c *Catalog) AddColumn(tableKey, column, dataType string) {
	c.AddTable(tableKey, map[string]string{column: dataType})
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns the table keys in insertion order.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Table returns the table stored under an exact (normalized) key.
func (c *Catalog) Table(key string) (*TableSchema, bool) {
	if c == nil {
		return nil, false
	}
	ts, ok := c.tables[NormalizeKey(key)]
	return ts, ok
}

// LookupByName resolves a bare table name against the rightmost segment of
// each catalog key, so "ORDERS" finds both "ORDERS" and "SALES.ORDERS".
// The first key in insertion order wins when several schemas share a name.
func (c *Catalog) LookupByName(name string) (string, *TableSchema, bool) {
	if c == nil {
		return "", nil, false
	}
	want := LastSegment(NormalizeKey(name))
	if want == "" {
		return "", nil, false
	}
	if ts, ok := c.tables[want]; ok {
		return want, ts, true
	}
	for _, key := range c.keys {
		if LastSegment(key) == want {
			return key, c.tables[key], true
		}
	}
	return "", nil, false
}

// WithTable returns a copy of the catalog with one extra table, used for
// temp tables that only exist for the lifetime of a single statement.
func (c *Catalog) WithTable(key string, columns map[string]string) *Catalog {
	out := NewCatalog()
	if c != nil {
		for _, k := range c.keys {
			out.AddTable(k, c.tables[k].Columns)
		}
	}
	out.AddTable(key, columns)
	return out
}

// Snippet renders "TABLE: col, col" lines for prompts. maxTables <= 0 means
// all tables.
func (c *Catalog) Snippet(maxTables int) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for i, key := range c.keys {
		if maxTables > 0 && i >= maxTables {
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(strings.Join(c.tables[key].ColumnNames(), ", "))
	}
	return b.String()
}
