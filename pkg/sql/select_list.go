package sql

import (
	"regexp"
	"strings"
)

// OutputColumn is one entry of a statement's select list.
type OutputColumn struct {
	Name string // alias, or the bare column name, upper-cased
	Expr string // the expression with string literals blanked
}

var (
	selectStartRegex = regexp.MustCompile(`(?i)^\s*SELECT\s+(?:DISTINCT\s+|ALL\s+)?(?:TOP\s*\(?\s*\d+\s*\)?\s+)?`)
	selectEndRegex   = regexp.MustCompile(`(?i)\s(?:FROM|WHERE|GROUP|ORDER|LIMIT|UNION|INTERSECT|EXCEPT)\s|;`)
	asAliasRegex     = regexp.MustCompile(`(?i)\s+AS\s+("?[\w$#]+"?)\s*$`)
	funcNameRegex    = regexp.MustCompile(`^([\w$#]+)\s*\(`)
	selectKeywords   = map[string]bool{"FROM": true, "WHERE": true, "AND": true, "OR": true, "AS": true, "END": true}
)

// OutputColumns returns the select list of a SELECT statement. It returns nil
// when the statement is not a plain SELECT or selects *, since the output
// columns then depend on the schema.
//
// Example:
//
//	OutputColumns("SELECT m.USER_NO, NVL(EMAIL, '-') AS MAIL FROM MEMBERS m")
//	// [{USER_NO m.USER_NO} {MAIL NVL(EMAIL, '') AS MAIL}]
func OutputColumns(sqlQuery string) []OutputColumn {
	clean := " " + whitespaceRegex.ReplaceAllString(StripStringLiterals(sqlQuery), " ") + " "
	start := selectStartRegex.FindStringIndex(clean)
	if start == nil {
		return nil
	}
	list := clean[start[1]:]
	if loc := selectEndRegex.FindStringIndex(list); loc != nil {
		list = list[:loc[0]]
	}
	list = strings.TrimSpace(list)
	if list == "" || strings.HasPrefix(list, "*") {
		return nil
	}

	var cols []OutputColumn
	for _, expr := range splitTopLevel(list) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		if strings.HasSuffix(expr, ".*") {
			return nil
		}
		cols = append(cols, OutputColumn{Name: outputName(expr), Expr: expr})
	}
	return cols
}

// MissingOutputColumns returns the names in required that the statement's
// select list does not produce, compared case-insensitively. A statement
// whose select list cannot be determined misses nothing.
func MissingOutputColumns(sqlQuery string, required ...string) []string {
	cols := OutputColumns(sqlQuery)
	if cols == nil {
		return nil
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c.Name] = true
	}
	var missing []string
	for _, r := range required {
		if r != "" && !have[strings.ToUpper(r)] {
			missing = append(missing, r)
		}
	}
	return missing
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(list string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, list[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, list[last:])
}

func outputName(expr string) string {
	if m := asAliasRegex.FindStringSubmatch(expr); m != nil {
		return strings.ToUpper(strings.Trim(m[1], `"`))
	}

	// Implicit alias: "COUNT(*) total", but not "CASE ... END".
	if fields := strings.Fields(expr); len(fields) > 1 && strings.Count(expr, "(") == strings.Count(expr, ")") {
		last := fields[len(fields)-1]
		if !strings.ContainsAny(last, "()'") && !selectKeywords[strings.ToUpper(last)] {
			return strings.ToUpper(strings.Trim(last, `"`))
		}
	}

	if m := funcNameRegex.FindStringSubmatch(expr); m != nil {
		return strings.ToUpper(m[1])
	}
	if strings.HasPrefix(strings.ToUpper(expr), "CASE") {
		return "CASE"
	}
	return NormalizeTableToken(expr)
}
