package sql

import (
	"regexp"
	"strings"
)

// ColumnRef is a qualifier.column pair found in statement text, upper-cased.
type ColumnRef struct {
	Qualifier string
	Column    string
}

// ParsedStatement is the identifier view of one SQL string. It is built per
// validation call and discarded with the verdict.
type ParsedStatement struct {
	SQL     string
	Tables  []string          // referenced table names, rightmost segment, first-seen order
	Aliases map[string]string // alias -> table name
	Columns []ColumnRef       // qualified column references, first-seen order
	CTEs    []string          // names introduced by WITH ... AS (
}

// IsCTE reports whether name was introduced by a WITH clause in the statement.
func (p *ParsedStatement) IsCTE(name string) bool {
	for _, c := range p.CTEs {
		if c == name {
			return true
		}
	}
	return false
}

// IdentifierExtractor recovers table, alias and column references from SQL
// text. The validator only depends on this interface.
type IdentifierExtractor interface {
	Extract(sqlQuery string) *ParsedStatement
}

// LexicalExtractor is a regex scanner, not a parser. Derived tables in FROM lists
// are scanned but not resolved, and correlation names from nested queries are
// not tracked.
type LexicalExtractor struct{}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	tableStartRegex = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|INTO)\s+`)
	tableStopRegex  = regexp.MustCompile(`(?i)\b(?:WHERE|JOIN|ON|GROUP|ORDER|FETCH|LIMIT)\b|;`)
	listSplitRegex  = regexp.MustCompile(`\s*,\s*`)
	nonIdentRegex   = regexp.MustCompile(`[^\w$#]`)
	aliasRegex      = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z0-9_$#".]+)\s+(?:AS\s+)?([A-Za-z0-9_$#"]+)\b`)
	qualifiedRegex  = regexp.MustCompile(`[A-Za-z0-9_$#"]+(?:\.[A-Za-z0-9_$#"]+)+`)
	cteRegex        = regexp.MustCompile(`(?i)(?:\bWITH|,)\s*([A-Za-z_][\w$#]*)\s+AS\s*\(`)
	aliasStopWords  = map[string]bool{"WHERE": true, "ON": true, "JOIN": true, "GROUP": true, "ORDER": true, "FETCH": true, "LIMIT": true}
)

var defaultExtractor IdentifierExtractor = LexicalExtractor{}

// Extract scans sqlQuery. String literal contents are blanked first so text
// inside quotes is never read as an identifier.
func (LexicalExtractor) Extract(sqlQuery string) *ParsedStatement {
	clean := whitespaceRegex.ReplaceAllString(StripStringLiterals(sqlQuery), " ")
	return &ParsedStatement{
		SQL:     sqlQuery,
		Tables:  extractTables(clean),
		Aliases: extractAliases(clean),
		Columns: extractQualifiedColumns(clean),
		CTEs:    extractCTEs(clean),
	}
}

// NormalizeTableToken dequotes a FROM-list token, reduces it to its rightmost
// dot-segment, drops characters outside word/$/# and upper-cases it.
// Applying it twice gives the same result as applying it once.
func NormalizeTableToken(token string) string {
	token = strings.Trim(strings.TrimSpace(token), `"'`)
	if i := strings.LastIndex(token, "."); i >= 0 {
		token = token[i+1:]
	}
	token = nonIdentRegex.ReplaceAllString(token, "")
	return strings.ToUpper(token)
}

func extractTables(clean string) []string {
	stops := tableStopRegex.FindAllStringIndex(clean, -1)
	seen := make(map[string]bool)
	var tables []string

	pos := 0
	for pos < len(clean) {
		loc := tableStartRegex.FindStringIndex(clean[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[1]
		if start >= len(clean) {
			break
		}
		// The capture is at least one character long, so the terminator
		// search starts one past the capture start.
		end := len(clean)
		for _, s := range stops {
			if s[0] >= start+1 {
				end = s[0]
				break
			}
		}
		group := strings.TrimSpace(clean[start:end])
		if strings.HasPrefix(group, "(") {
			// Derived table: not resolved itself, but scan inside it.
			pos = start + 1
			continue
		}
		pos = end
		if group == "" {
			continue
		}
		for _, part := range listSplitRegex.Split(group, -1) {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			token := NormalizeTableToken(fields[0])
			if token != "" && !seen[token] {
				seen[token] = true
				tables = append(tables, token)
			}
		}
	}
	return tables
}

func extractAliases(clean string) map[string]string {
	aliases := make(map[string]string)
	pos := 0
	for pos < len(clean) {
		m := aliasRegex.FindStringSubmatchIndex(clean[pos:])
		if m == nil {
			break
		}
		rawTable := clean[pos+m[2] : pos+m[3]]
		alias := clean[pos+m[4] : pos+m[5]]

		if aliasStopWords[strings.ToUpper(alias)] {
			// The keyword may itself start the next FROM/JOIN clause.
			pos += m[4]
			continue
		}
		pos += m[1]

		table := strings.ToUpper(lastSegment(strings.Trim(rawTable, `"`)))
		alias = strings.ToUpper(strings.Trim(alias, `"'`))
		if alias != "" && table != "" {
			aliases[alias] = table
		}
	}
	return aliases
}

func extractQualifiedColumns(clean string) []ColumnRef {
	seen := make(map[ColumnRef]bool)
	var refs []ColumnRef
	for _, match := range qualifiedRegex.FindAllString(clean, -1) {
		parts := strings.Split(match, ".")
		qualifier := strings.ToUpper(strings.Trim(parts[len(parts)-2], `"`))
		column := strings.ToUpper(strings.Trim(parts[len(parts)-1], `"`))
		if qualifier == "" || column == "" || isNumeric(qualifier) {
			continue
		}
		ref := ColumnRef{Qualifier: qualifier, Column: column}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}

func extractCTEs(clean string) []string {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(clean)), "WITH") {
		return nil
	}
	var names []string
	for _, m := range cteRegex.FindAllStringSubmatch(clean, -1) {
		names = append(names, strings.ToUpper(m[1]))
	}
	return names
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
